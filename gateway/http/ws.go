package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/pipeline"
	"github.com/c360/adapterkit/resolver"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsCloseTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway is same-origin by deployment; cross-origin policy is
	// the reverse proxy's concern.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsError is the terminal frame sent before an abnormal close.
type wsError struct {
	Error string `json:"error"`
}

// handleStreamRaw serves a raw history read in streamed mode: the client
// sends one ReadRawRequest frame, then receives one frame per sample with
// no buffering and no truncation marker. Either side closing the socket
// cancels production.
func (g *Gateway) handleStreamRaw(w http.ResponseWriter, r *http.Request) {
	g.requestsTotal.Add(1)

	if !g.running.Load() {
		g.writeError(w, http.StatusServiceUnavailable, "gateway is not running")
		g.requestsFailed.Add(1)
		return
	}
	if g.limiter != nil && !g.limiter.Allow() {
		g.writeError(w, http.StatusTooManyRequests, "request rate limit exceeded")
		g.requestsFailed.Add(1)
		return
	}

	conn, err := upgrader.Upgrade(w, r, http.Header{
		"X-Request-ID": []string{getOrGenerateRequestID(r)},
	})
	if err != nil {
		g.requestsFailed.Add(1)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var req adapter.ReadRawRequest
	_ = conn.SetReadDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.ReadJSON(&req); err != nil {
		g.closeWith(conn, websocket.ClosePolicyViolation, "invalid request frame")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	// After the request frame, reads only carry close frames; a read
	// error means the client went away, which cancels production.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	reader, err := resolver.ResolveFeature[adapter.RawReader](
		ctx, g.resolver, r.PathValue("id"), adapter.FeatureReadRaw)
	if err != nil {
		g.failWS(conn, err)
		return
	}

	s, err := reader.ReadRaw(ctx, &req)
	if err != nil {
		g.failWS(conn, err)
		return
	}

	err = pipeline.ReadStreamed(ctx, s, func(_ context.Context, value adapter.TagValue) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(value)
	})
	if err != nil && ctx.Err() == nil {
		g.failWS(conn, err)
		return
	}

	g.closeWith(conn, websocket.CloseNormalClosure, "")
}

// failWS reports err on the socket and closes abnormally.
func (g *Gateway) failWS(conn *websocket.Conn, err error) {
	g.requestsFailed.Add(1)
	_, message := g.mapError(err)

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(wsError{Error: message})
	g.closeWith(conn, websocket.CloseInternalServerErr, message)
}

func (g *Gateway) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(wsCloseTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}
