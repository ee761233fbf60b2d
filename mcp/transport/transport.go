// Package transport defines the JSON-RPC 2.0 message envelope and the
// Transport contract the tool server runs over.
package transport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ProtocolVersion is the JSON-RPC version this package speaks.
const ProtocolVersion = "2.0"

// RequestId identifies a request/response pair.
type RequestId int64

// BaseMessageType discriminates the envelope content.
type BaseMessageType string

const (
	BaseMessageTypeJSONRPCRequestType      BaseMessageType = "request"
	BaseMessageTypeJSONRPCNotificationType BaseMessageType = "notification"
	BaseMessageTypeJSONRPCResponseType     BaseMessageType = "response"
	BaseMessageTypeJSONRPCErrorType        BaseMessageType = "error"
)

// BaseJSONRPCRequest is a call expecting a response.
type BaseJSONRPCRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      RequestId       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON enforces the request shape: a method and an id must
// both be present, otherwise try-in-order envelope parsing would
// misclassify notifications and responses.
func (m *BaseJSONRPCRequest) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCRequest
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["method"]; !ok {
		return errors.New("request is missing method")
	}
	if _, ok := probe["id"]; !ok {
		return errors.New("request is missing id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCRequest(a)
	return nil
}

// BaseJSONRPCNotification is a call without a response.
type BaseJSONRPCNotification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (m *BaseJSONRPCNotification) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCNotification
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["method"]; !ok {
		return errors.New("notification is missing method")
	}
	if _, ok := probe["id"]; ok {
		return errors.New("notification must not carry an id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCNotification(a)
	return nil
}

// BaseJSONRPCResponse is a successful result.
type BaseJSONRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      RequestId       `json:"id"`
	Result  json.RawMessage `json:"result"`
}

func (m *BaseJSONRPCResponse) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCResponse
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["result"]; !ok {
		return errors.New("response is missing result")
	}
	if _, ok := probe["id"]; !ok {
		return errors.New("response is missing id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCResponse(a)
	return nil
}

// JSONRPCErrorDetail is the error member of an error response.
type JSONRPCErrorDetail struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// BaseJSONRPCError is a failed result.
type BaseJSONRPCError struct {
	Jsonrpc string             `json:"jsonrpc"`
	Id      RequestId          `json:"id"`
	Error   JSONRPCErrorDetail `json:"error"`
}

func (m *BaseJSONRPCError) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCError
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["error"]; !ok {
		return errors.New("error response is missing error")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCError(a)
	return nil
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
)

// BaseJsonRpcMessage is the envelope carried by transports; exactly
// one member is set, named by Type.
type BaseJsonRpcMessage struct {
	Type                BaseMessageType
	JsonRpcRequest      *BaseJSONRPCRequest
	JsonRpcNotification *BaseJSONRPCNotification
	JsonRpcResponse     *BaseJSONRPCResponse
	JsonRpcError        *BaseJSONRPCError
}

func NewBaseMessageRequest(request *BaseJSONRPCRequest) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:           BaseMessageTypeJSONRPCRequestType,
		JsonRpcRequest: request,
	}
}

func NewBaseMessageNotification(notification *BaseJSONRPCNotification) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:                BaseMessageTypeJSONRPCNotificationType,
		JsonRpcNotification: notification,
	}
}

func NewBaseMessageResponse(response *BaseJSONRPCResponse) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:            BaseMessageTypeJSONRPCResponseType,
		JsonRpcResponse: response,
	}
}

func NewBaseMessageError(err *BaseJSONRPCError) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:         BaseMessageTypeJSONRPCErrorType,
		JsonRpcError: err,
	}
}

// MessageID returns the id of the contained message, or 0 for
// notifications.
func (m *BaseJsonRpcMessage) MessageID() RequestId {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Id
	case BaseMessageTypeJSONRPCResponseType:
		return m.JsonRpcResponse.Id
	case BaseMessageTypeJSONRPCErrorType:
		return m.JsonRpcError.Id
	default:
		return 0
	}
}

// MarshalJSON serializes the contained message.
func (m *BaseJsonRpcMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return json.Marshal(m.JsonRpcRequest)
	case BaseMessageTypeJSONRPCNotificationType:
		return json.Marshal(m.JsonRpcNotification)
	case BaseMessageTypeJSONRPCResponseType:
		return json.Marshal(m.JsonRpcResponse)
	case BaseMessageTypeJSONRPCErrorType:
		return json.Marshal(m.JsonRpcError)
	}
	return nil, errors.Errorf("unknown message type: %s", m.Type)
}

// ParseMessage classifies a raw JSON-RPC payload into the envelope.
func ParseMessage(data []byte) (*BaseJsonRpcMessage, error) {
	var request BaseJSONRPCRequest
	if err := json.Unmarshal(data, &request); err == nil {
		return NewBaseMessageRequest(&request), nil
	}
	var notification BaseJSONRPCNotification
	if err := json.Unmarshal(data, &notification); err == nil {
		return NewBaseMessageNotification(&notification), nil
	}
	var response BaseJSONRPCResponse
	if err := json.Unmarshal(data, &response); err == nil {
		return NewBaseMessageResponse(&response), nil
	}
	var errorResponse BaseJSONRPCError
	if err := json.Unmarshal(data, &errorResponse); err == nil {
		return NewBaseMessageError(&errorResponse), nil
	}
	return nil, errors.New("failed to parse JSON-RPC message")
}

// Transport carries JSON-RPC messages between a client and the server.
type Transport interface {
	// Start begins processing messages and blocks until the transport
	// is closed or the context is canceled.
	Start(ctx context.Context) error

	// Send delivers a message to the peer.
	Send(ctx context.Context, message *BaseJsonRpcMessage) error

	// Close terminates the transport.
	Close() error

	SetErrorHandler(handler func(error))
	SetCloseHandler(handler func())
	SetMessageHandler(handler func(ctx context.Context, message *BaseJsonRpcMessage))
}
