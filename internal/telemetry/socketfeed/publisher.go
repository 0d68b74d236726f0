// Package socketfeed streams run events to a socket.io endpoint so a
// dashboard can follow a run live.
package socketfeed

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by the Publisher.
const (
	EventRunStarted   = "run_started"
	EventNodeFinished = "node_finished"
	EventNodeSkipped  = "node_skipped"
	EventRunFinished  = "run_finished"
)

// EmitFunc sends one event with a JSON-able payload.
type EmitFunc func(event string, payload any)

// Config describes the socket.io endpoint.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher is an engine.Observer that emits run and node events.
type Publisher struct {
	emit  EmitFunc
	close func()
}

// New returns a Publisher that emits through fn.
func New(fn EmitFunc) *Publisher {
	return &Publisher{emit: fn, close: func() {}}
}

// Dial connects to cfg.URL and returns a Publisher bound to the connection.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL)
	logger.Debug("Connecting event feed.")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", errs[0])
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
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
	logger.Info("📡 Event feed connected.")

	return &Publisher{
		emit:  func(event string, payload any) { io.Emit(event, payload) },
		close: func() { io.Disconnect() },
	}, nil
}

// Close disconnects the feed.
func (p *Publisher) Close() error {
	p.close()
	return nil
}

func (p *Publisher) RunStarted(_ context.Context, info engine.RunInfo) {
	p.emit(EventRunStarted, map[string]any{
		"run_id":   info.RunID,
		"pipeline": info.Pipeline,
		"stages":   info.Stages,
		"items":    info.Items,
		"nodes":    info.Nodes,
	})
}

func (p *Publisher) NodeDispatched(context.Context, engine.NodeEvent) {}

func (p *Publisher) NodeFinished(_ context.Context, ev engine.NodeEvent) {
	payload := map[string]any{
		"node":        ev.Key.String(),
		"stage":       ev.Stage,
		"attempts":    ev.Attempts,
		"duration_ms": ev.Finished.Sub(ev.Started).Milliseconds(),
	}
	if ev.Err != nil {
		payload["error"] = ev.Err.Error()
	}
	p.emit(EventNodeFinished, payload)
}

func (p *Publisher) NodeSkipped(_ context.Context, ev engine.NodeEvent) {
	payload := map[string]any{"node": ev.Key.String(), "stage": ev.Stage}
	if ev.Err != nil {
		payload["cause"] = ev.Err.Error()
	}
	p.emit(EventNodeSkipped, payload)
}

func (p *Publisher) RunFinished(_ context.Context, r *report.RunReport) {
	c := r.Counts()
	p.emit(EventRunFinished, map[string]any{
		"run_id":    r.RunID,
		"completed": c.Completed,
		"failed":    c.Failed,
		"skipped":   c.Skipped,
		"cancelled": r.Cancelled,
		"aborted":   r.Aborted,
	})
}
