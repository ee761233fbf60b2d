// Package localtransport is an in-process Transport used by tests and
// embedded callers: HandleMessage feeds a raw payload to the server
// and blocks until it answers.
package localtransport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/mcp/transport"
)

type Transport struct {
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	atomicCounter  int64
}

var _ transport.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		responseMap: make(map[int64]chan *transport.BaseJsonRpcMessage),
	}
}

// Start does nothing; the local transport is driven by HandleMessage.
func (s *Transport) Start(_ context.Context) error {
	return nil
}

func (s *Transport) Close() error {
	s.mu.RLock()
	handler := s.closeHandler
	s.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (s *Transport) SetErrorHandler(handler func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandler = handler
}

func (s *Transport) SetCloseHandler(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeHandler = handler
}

func (s *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHandler = handler
}

// Send delivers the server's answer to the HandleMessage call that is
// waiting on the rewritten request id.
func (s *Transport) Send(_ context.Context, message *transport.BaseJsonRpcMessage) error {
	key := int64(message.MessageID())

	s.mu.RLock()
	responseChannel := s.responseMap[key]
	s.mu.RUnlock()

	if responseChannel == nil {
		return errors.Errorf("no response channel found for key: %d", key)
	}
	responseChannel <- message
	return nil
}

// HandleMessage processes one incoming payload and returns the
// server's response. Request ids are rewritten to a local key so that
// concurrent callers cannot collide, and restored before returning.
func (s *Transport) HandleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	msg, err := transport.ParseMessage(body)
	if err != nil {
		if s.errorHandler != nil {
			s.errorHandler(err)
		}
		return nil, err
	}

	s.mu.RLock()
	handler := s.messageHandler
	s.mu.RUnlock()
	if handler == nil {
		return nil, errors.New("no message handler set")
	}

	if msg.Type == transport.BaseMessageTypeJSONRPCNotificationType {
		handler(ctx, msg)
		return &transport.BaseJsonRpcMessage{
			Type: transport.BaseMessageTypeJSONRPCResponseType,
		}, nil
	}
	if msg.Type != transport.BaseMessageTypeJSONRPCRequestType {
		handler(ctx, msg)
		return nil, nil
	}

	key := atomic.AddInt64(&s.atomicCounter, 1)
	ch := make(chan *transport.BaseJsonRpcMessage, 1)
	s.mu.Lock()
	s.responseMap[key] = ch
	s.mu.Unlock()

	prevId := msg.JsonRpcRequest.Id
	msg.JsonRpcRequest.Id = transport.RequestId(key)
	handler(ctx, msg)

	response := <-ch

	s.mu.Lock()
	delete(s.responseMap, key)
	s.mu.Unlock()

	switch {
	case response.JsonRpcResponse != nil:
		response.JsonRpcResponse.Id = prevId
	case response.JsonRpcError != nil:
		response.JsonRpcError.Id = prevId
	}
	return response, nil
}
