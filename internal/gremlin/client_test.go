// File: internal/gremlin/client_test.go
package gremlin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeServer answers every request with the frames produced by handler.
type fakeServer struct {
	*httptest.Server
	requests chan Request
}

func newFakeServer(t *testing.T, handler func(req Request) []map[string]any) *fakeServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	fs := &fakeServer{requests: make(chan Request, 16)}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := DecodeRequest(frame)
			if err != nil {
				return
			}
			fs.requests <- req
			for _, msg := range handler(req) {
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http") + "/gremlin"
}

func reply(req Request, code int, data any) map[string]any {
	return map[string]any{
		"requestId": req.RequestID,
		"status":    map[string]any{"code": code, "message": ""},
		"result":    map[string]any{"data": data, "meta": map[string]any{}},
	}
}

func TestClientSubmit(t *testing.T) {
	t.Run("collects partial responses until success", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any {
			return []map[string]any{
				reply(req, StatusPartialContent, []any{"a", "b"}),
				reply(req, StatusSuccess, []any{"c"}),
			}
		})
		c, err := Dial(context.Background(), fs.wsURL(), nil, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()

		res, err := c.Eval(context.Background(), V().HasLabel("project").Render("g"))
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, res)

		req := <-fs.requests
		assert.Equal(t, "eval", req.Op)
		assert.Equal(t, "gremlin-groovy", req.Args.Language)
		assert.Equal(t, "g.V().hasLabel(_b0)", req.Args.Gremlin)
		assert.Equal(t, "project", req.Args.Bindings["_b0"])
	})

	t.Run("no content yields an empty result", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any {
			return []map[string]any{reply(req, StatusNoContent, nil)}
		})
		c, err := Dial(context.Background(), fs.wsURL(), nil, nil)
		require.NoError(t, err)
		defer c.Close()

		res, err := c.Submit(context.Background(), "g.V().drop().iterate()", nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("unwraps typed graphson values", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any {
			return []map[string]any{reply(req, StatusSuccess, map[string]any{
				"@type": "g:List",
				"@value": []any{
					map[string]any{"@type": "g:Int64", "@value": 42},
					map[string]any{"@type": "g:UUID", "@value": "8a4e2c3c-0000-0000-0000-000000000001"},
				},
			})}
		})
		c, err := Dial(context.Background(), fs.wsURL(), nil, nil)
		require.NoError(t, err)
		defer c.Close()

		res, err := c.Submit(context.Background(), "g.V().id()", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(42), "8a4e2c3c-0000-0000-0000-000000000001"}, res)
	})

	t.Run("error status becomes a ServerError", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any {
			msg := reply(req, 597, nil)
			msg["status"] = map[string]any{"code": 597, "message": "No such property: foo"}
			return []map[string]any{msg}
		})
		c, err := Dial(context.Background(), fs.wsURL(), nil, nil)
		require.NoError(t, err)
		defer c.Close()

		_, err = c.Submit(context.Background(), "foo", nil)
		var srvErr *ServerError
		require.True(t, errors.As(err, &srvErr))
		assert.Equal(t, 597, srvErr.Code)
		assert.Contains(t, err.Error(), "No such property: foo")

		// The connection is still usable after a server side error.
		_, err = c.Submit(context.Background(), "foo", nil)
		assert.True(t, errors.As(err, &srvErr))
	})

	t.Run("deadline aborts a hung request and the next one re-dials", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any {
			if req.Args.Gremlin == "slow" {
				return nil
			}
			return []map[string]any{reply(req, StatusSuccess, []any{int64(1)})}
		})
		c, err := Dial(context.Background(), fs.wsURL(), nil, nil)
		require.NoError(t, err)
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = c.Submit(ctx, "slow", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		res, err := c.Submit(context.Background(), "g.V().count()", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1)}, res)
	})

	t.Run("failed re-dial reports a broken client", func(t *testing.T) {
		fs := newFakeServer(t, func(req Request) []map[string]any { return nil })
		c, err := Dial(context.Background(), fs.wsURL(), nil, nil)
		require.NoError(t, err)
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = c.Submit(ctx, "g.V()", nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		fs.Close()
		dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer dialCancel()
		_, err = c.Submit(dialCtx, "g.V()", nil)
		assert.ErrorIs(t, err, ErrClientBroken)
	})
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/gremlin", nil, nil)
	assert.Error(t, err)
}

func TestDecodeRequestTruncated(t *testing.T) {
	_, err := DecodeRequest([]byte{40, 'a'})
	assert.Error(t, err)
}
