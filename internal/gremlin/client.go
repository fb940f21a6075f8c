// File: internal/gremlin/client.go
package gremlin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// MimeType is the serializer requested from the server.
const MimeType = "application/json"

// Gremlin Server response status codes.
const (
	StatusSuccess        = 200
	StatusNoContent      = 204
	StatusPartialContent = 206
)

var codec = jsoniter.Config{UseNumber: true, SortMapKeys: true}.Froze()

// ErrClientBroken indicates a previous request left the connection in an
// unknown state (timeout, cancelled read) and re-dialing it failed.
var ErrClientBroken = errors.New("gremlin connection is no longer usable")

// ServerError is a non-success status returned by the Gremlin server.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("gremlin server error %d: %s", e.Code, e.Message)
}

// Request is a Gremlin Server "eval" request.
type Request struct {
	RequestID string      `json:"requestId"`
	Op        string      `json:"op"`
	Processor string      `json:"processor"`
	Args      RequestArgs `json:"args"`
}

// RequestArgs carries the script and its bindings.
type RequestArgs struct {
	Gremlin  string         `json:"gremlin"`
	Bindings map[string]any `json:"bindings,omitempty"`
	Language string         `json:"language"`
}

type response struct {
	RequestID string `json:"requestId"`
	Status    struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		Data jsoniter.RawMessage `json:"data"`
	} `json:"result"`
}

// Client is a single-connection Gremlin Server client. Requests are serialized;
// the fsck runs one query at a time. A request that leaves the connection in
// an unknown state makes the next one re-dial.
type Client struct {
	url    string
	header http.Header
	conn   *websocket.Conn
	mu     sync.Mutex
	broken bool
	logger *zap.Logger
}

// Dial opens the WebSocket connection to a Gremlin server.
func Dial(ctx context.Context, url string, header http.Header, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := dialConn(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:    url,
		header: header,
		conn:   conn,
		logger: logger.Named("gremlin"),
	}, nil
}

func dialConn(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
	dialer := *websocket.DefaultDialer
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return conn, nil
}

// reconnect swaps a broken connection for a fresh one. Callers hold c.mu.
func (c *Client) reconnect(ctx context.Context) error {
	_ = c.conn.Close()
	conn, err := dialConn(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClientBroken, err)
	}
	c.conn = conn
	c.broken = false
	c.logger.Info("Reconnected to gremlin server", zap.String("url", c.url))
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

// Eval sends a rendered script and collects every result item.
func (c *Client) Eval(ctx context.Context, script Script) ([]any, error) {
	return c.Submit(ctx, script.Text, script.Bindings)
}

// Submit sends a raw gremlin-groovy script and collects every result item,
// following 206 partial responses until a terminal status.
func (c *Client) Submit(ctx context.Context, gremlin string, bindings map[string]any) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		if err := c.reconnect(ctx); err != nil {
			return nil, err
		}
	}
	conn := c.conn

	req := Request{
		RequestID: uuid.NewString(),
		Op:        "eval",
		Processor: "",
		Args: RequestArgs{
			Gremlin:  gremlin,
			Bindings: bindings,
			Language: "gremlin-groovy",
		},
	}
	frame, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)
	// Unblock a pending read when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.logger.Debug("Submitting gremlin request", zap.String("request_id", req.RequestID), zap.String("gremlin", gremlin))

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.broken = true
		return nil, c.transportError(ctx, "write", err)
	}

	var results []any
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.broken = true
			return nil, c.transportError(ctx, "read", err)
		}

		var resp response
		if err := codec.Unmarshal(msg, &resp); err != nil {
			c.broken = true
			return nil, fmt.Errorf("failed to decode gremlin response: %w", err)
		}
		if resp.RequestID != req.RequestID {
			c.logger.Debug("Discarding response for another request", zap.String("request_id", resp.RequestID))
			continue
		}

		switch resp.Status.Code {
		case StatusSuccess, StatusPartialContent:
			items, err := decodeData(resp.Result.Data)
			if err != nil {
				c.broken = true
				return nil, err
			}
			results = append(results, items...)
			if resp.Status.Code == StatusSuccess {
				return results, nil
			}
		case StatusNoContent:
			return results, nil
		default:
			return nil, &ServerError{Code: resp.Status.Code, Message: resp.Status.Message}
		}
	}
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("gremlin %s aborted: %w", op, ctxErr)
	}
	return fmt.Errorf("gremlin %s failed: %w", op, err)
}

// encodeRequest builds a binary frame: one byte of mime length, the mime type,
// then the JSON request.
func encodeRequest(req Request) ([]byte, error) {
	body, err := codec.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gremlin request: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(len(MimeType)))
	buf.WriteString(MimeType)
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeRequest parses a binary request frame. Used by test servers.
func DecodeRequest(frame []byte) (Request, error) {
	var req Request
	if len(frame) == 0 || int(frame[0])+1 > len(frame) {
		return req, errors.New("truncated gremlin request frame")
	}
	body := frame[int(frame[0])+1:]
	if err := codec.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("failed to decode gremlin request: %w", err)
	}
	return req, nil
}

func decodeData(raw jsoniter.RawMessage) ([]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var data any
	if err := codec.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode gremlin result data: %w", err)
	}
	switch v := Unwrap(data).(type) {
	case []any:
		return v, nil
	default:
		return []any{v}, nil
	}
}
