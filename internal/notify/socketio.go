package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every notification is emitted under.
const EventName = "region"

// SocketIOOptions configures the renderer connection.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIO emits events to a remote renderer over socket.io.
type SocketIO struct {
	io *socket.Socket
}

// DialSocketIO connects to the renderer and waits for the handshake.
func DialSocketIO(ctx context.Context, o SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", o.URL)
	logger.Info("Connecting to renderer...")

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to renderer.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(o.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.ConnectTimeout)
	}
}

// Notify emits ev as a JSON-friendly payload. Delivery is fire-and-forget.
func (s *SocketIO) Notify(ctx context.Context, ev Event) {
	s.io.Emit(EventName, Payload(ev))
}

// Close disconnects from the renderer.
func (s *SocketIO) Close() error {
	s.io.Disconnect()
	return nil
}

// Payload flattens an event for the wire.
func Payload(ev Event) map[string]any {
	pts := ev.Hull.Vertices()
	hull := make([][2]float32, len(pts))
	for i, p := range pts {
		hull[i] = [2]float32{p.X, p.Y}
	}
	out := map[string]any{
		"kind":  ev.Kind.String(),
		"group": int64(ev.Group),
		"hull":  hull,
	}
	if ev.Region != "" {
		out["region"] = ev.Region
		out["type"] = ev.Type
	}
	return out
}
