// Package socketio streams diagnostics snapshots to a live dashboard over a
// socket.io connection. Every snapshot becomes one "summary" event.
package socketio

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/neurlang/reasoner/diagnostics"
	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event is the name of the emitted event.
const Event = "summary"

// ConnectTimeout bounds the wait for the initial connection.
const ConnectTimeout = 15 * time.Second

// Stream is a diagnostics.Sink emitting to a socket.io namespace.
type Stream struct {
	io *socket.Socket
}

// Dial connects to rawURL and joins namespace.
func Dial(ctx context.Context, rawURL, namespace string) (*Stream, error) {
	logger := logging.FromContext(ctx).With("sink", "socketio", "url", rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse URL")
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- errors.New("connect_error")
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, errors.Wrap(err, "socket.io connection failed")
		}
		logger.Info("Connected.", "sid", io.Id())
		return &Stream{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-time.After(ConnectTimeout):
		io.Disconnect()
		return nil, errors.Errorf("timed out after %v waiting for socket.io connection", ConnectTimeout)
	}
}

// Write emits s as one summary event.
func (s *Stream) Write(ctx context.Context, snap *diagnostics.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.io.Connected() {
		return errors.New("socket.io stream disconnected")
	}
	return s.io.Emit(Event, Payload(snap))
}

// Close disconnects.
func (s *Stream) Close() error {
	s.io.Disconnect()
	return nil
}

// Payload converts a snapshot into the JSON friendly event body.
func Payload(s *diagnostics.Snapshot) map[string]any {
	histograms := make([]any, 0, len(s.Histograms))
	for _, h := range s.Histograms {
		histograms = append(histograms, map[string]any{
			"tag":       h.Tag,
			"min":       h.Min,
			"max":       h.Max,
			"mean":      h.Mean,
			"stddev":    h.StdDev,
			"count":     h.Count,
			"nonfinite": h.NonFinite,
			"edges":     h.Edges,
			"counts":    h.Counts,
		})
	}
	scalars := make(map[string]any)
	for tag, v := range s.Scalars() {
		scalars[tag] = v
	}
	return map[string]any{
		"run":        s.RunID,
		"name":       s.RunName,
		"split":      s.Split,
		"step":       s.Step,
		"scalars":    scalars,
		"caption":    s.Caption,
		"histograms": histograms,
	}
}
