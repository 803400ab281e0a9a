// Package host manages the lifecycle of the DTSS listener: it binds
// the query router behind the gRPC server, verifies the listener is
// answering through a heartbeat call, and tears everything down again.
// Start and Stop are idempotent; repeated transitions log a warning
// and change nothing.
package host

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/sverreng/dtss/internal/repository/heartbeat"
	"github.com/sverreng/dtss/internal/server"
)

const verifyTimeout = 5 * time.Second

// Host owns the listener resource. It is Stopped on construction;
// Start moves it to Running, Stop back to Stopped. There are no
// intermediate states.
type Host struct {
	addr      string
	handler   server.Handler
	serverCfg server.Config
	logger    *logrus.Logger

	mu  sync.Mutex
	srv *grpc.Server
	lis net.Listener
}

// New creates a stopped host serving the given handler on addr
// (host:port; port 0 picks a free port).
func New(addr string, handler server.Handler, cfg server.Config, logger *logrus.Logger) *Host {
	if logger == nil {
		logger = logrus.New()
	}
	return &Host{
		addr:      addr,
		handler:   handler,
		serverCfg: cfg,
		logger:    logger,
	}
}

// Start binds the listener and begins serving. Starting a running host
// is a no-op with a logged warning, leaving exactly one listener bound.
// After the server is up, a heartbeat find is issued through a real
// client connection; if the listener does not answer, the host is
// stopped again and the error returned.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.srv != nil {
		h.logger.Warn("Attempted to start a host that is already running")
		return nil
	}

	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("host listen on %s: %w", h.addr, err)
	}

	srv, err := server.Setup(h.handler, h.serverCfg, h.logger)
	if err != nil {
		lis.Close()
		return fmt.Errorf("host setup: %w", err)
	}

	h.srv = srv
	h.lis = lis

	go func() {
		if err := srv.Serve(lis); err != nil {
			h.logger.WithError(err).Error("Listener terminated")
		}
	}()

	h.logger.WithField("address", lis.Addr().String()).Info("Host started")

	if err := h.verify(); err != nil {
		h.logger.WithError(err).Error("Host is not responding, stopping")
		h.stopLocked()
		return fmt.Errorf("host verification: %w", err)
	}
	return nil
}

// Stop releases the listener. Stopping a stopped host is a no-op with
// a logged warning.
func (h *Host) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.srv == nil {
		h.logger.Warn("Attempted to stop a host that is not running")
		return
	}
	h.stopLocked()
}

func (h *Host) stopLocked() {
	h.logger.WithField("address", h.lis.Addr().String()).Info("Host stopping")
	h.srv.GracefulStop()
	h.srv = nil
	h.lis = nil
}

// Running reports whether the listener is bound.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.srv != nil
}

// Addr returns the bound listener address, or the configured address
// when stopped.
func (h *Host) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lis != nil {
		return h.lis.Addr().String()
	}
	return h.addr
}

// verify round-trips a heartbeat find through the freshly bound
// listener. Called with mu held.
func (h *Host) verify() error {
	client, err := server.Dial(h.lis.Addr().String())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	resp, err := client.Find(ctx, &server.FindRequest{
		Query: heartbeat.NewQuery("startup-verification"),
	})
	if err != nil {
		return err
	}
	if len(resp.Infos) == 0 {
		return fmt.Errorf("heartbeat returned no results")
	}
	return nil
}
