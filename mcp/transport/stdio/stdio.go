// Package stdio carries newline-delimited JSON-RPC messages over
// stdin/stdout, the transport MCP hosts launch subprocess servers with.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/mcp/transport"
)

type Transport struct {
	reader *bufio.Scanner
	writer io.Writer

	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	writeMu        sync.Mutex
	done           chan struct{}
}

var _ transport.Transport = (*Transport)(nil)

// New creates a transport over os.Stdin and os.Stdout.
func New() *Transport {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO creates a transport over the given reader and writer.
func NewWithIO(in io.Reader, out io.Writer) *Transport {
	scanner := bufio.NewScanner(in)
	// Tool payloads can be large; the default token limit is too small.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Transport{
		reader: scanner,
		writer: out,
		done:   make(chan struct{}),
	}
}

// Start reads messages line by line until EOF or Close.
func (t *Transport) Start(ctx context.Context) error {
	for t.reader.Scan() {
		select {
		case <-t.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := t.reader.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := transport.ParseMessage(line)
		if err != nil {
			t.reportError(err)
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(ctx, msg)
		}
	}
	if err := t.reader.Err(); err != nil {
		return errors.Wrap(err, "failed to read stdin")
	}
	return nil
}

// Send writes one message followed by a newline.
func (t *Transport) Send(_ context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

func (t *Transport) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (t *Transport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

func (t *Transport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
