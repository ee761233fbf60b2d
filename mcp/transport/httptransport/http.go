// Package httptransport serves the tool server over a stateless HTTP
// POST endpoint: one JSON-RPC message per request body, the response
// in the reply body.
package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "httptransport")

type HTTPTransport struct {
	server         *http.Server
	endpoint       string
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	atomicCounter  int64
	addr           string
}

var _ transport.Transport = (*HTTPTransport)(nil)

// New creates an HTTP transport serving the given endpoint path.
func New(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		endpoint:    endpoint,
		responseMap: make(map[int64]chan *transport.BaseJsonRpcMessage),
		addr:        ":8080",
	}
}

// WithAddr sets the listen address.
func (t *HTTPTransport) WithAddr(addr string) *HTTPTransport {
	t.addr = addr
	return t
}

// Start implements Transport.Start; it blocks in ListenAndServe.
func (t *HTTPTransport) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.endpoint, t.handleRequest)

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}
	return t.server.ListenAndServe()
}

// Send implements Transport.Send.
func (t *HTTPTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	if message.Type == transport.BaseMessageTypeJSONRPCNotificationType {
		return nil
	}
	key := int64(message.MessageID())
	logger.ContextKV(ctx, xlog.DEBUG, "type", message.Type, "key", key)

	t.mu.RLock()
	responseChannel := t.responseMap[key]
	t.mu.RUnlock()
	if responseChannel == nil {
		return errors.Errorf("no response channel found for key: %d", key)
	}
	responseChannel <- message
	return nil
}

// Close implements Transport.Close.
func (t *HTTPTransport) Close() error {
	if t.server != nil {
		if err := t.server.Close(); err != nil {
			return err
		}
	}
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (t *HTTPTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *HTTPTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *HTTPTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// Handler returns the request handler, for mounting on an external mux.
func (t *HTTPTransport) Handler() http.HandlerFunc {
	return t.handleRequest
}

func (t *HTTPTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.reportError(errors.Wrap(err, "failed to read request body"))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	response, err := t.handleMessage(r.Context(), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		t.reportError(errors.Wrap(err, "failed to marshal response"))
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonData)
}

// handleMessage dispatches one message to the server and blocks until
// the matching Send arrives. Request ids are rewritten to a local key
// so concurrent posts cannot collide, and restored before replying.
func (t *HTTPTransport) handleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	msg, err := transport.ParseMessage(body)
	if err != nil {
		t.reportError(err)
		return nil, err
	}

	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()
	if handler == nil {
		return nil, errors.New("no message handler set")
	}

	if msg.Type != transport.BaseMessageTypeJSONRPCRequestType {
		handler(ctx, msg)
		return &transport.BaseJsonRpcMessage{
			Type: transport.BaseMessageTypeJSONRPCResponseType,
		}, nil
	}

	key := atomic.AddInt64(&t.atomicCounter, 1)
	ch := make(chan *transport.BaseJsonRpcMessage, 1)
	t.mu.Lock()
	t.responseMap[key] = ch
	t.mu.Unlock()

	prevId := msg.JsonRpcRequest.Id
	msg.JsonRpcRequest.Id = transport.RequestId(key)
	handler(ctx, msg)

	response := <-ch

	t.mu.Lock()
	delete(t.responseMap, key)
	t.mu.Unlock()

	switch {
	case response.JsonRpcResponse != nil:
		response.JsonRpcResponse.Id = prevId
	case response.JsonRpcError != nil:
		response.JsonRpcError.Id = prevId
	}
	return response, nil
}

func (t *HTTPTransport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
