// Package sshd is the SSH driving adapter. It accepts connections with
// gliderlabs/ssh, hands authentication to the credential policy and runs the
// fake shell for every session.
package sshd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	gliderssh "github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/honeyshell/internal/application"
	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driving"
)

// DefaultServerVersion is the identification string sent to clients.
const DefaultServerVersion = "OpenSSH_7.4p1 Debian-10+deb9u6"

// Authenticator decides login attempts.
type Authenticator interface {
	Validate(ctx context.Context, username, password string) bool
	ValidatePublicKey(ctx context.Context, username, fingerprint string) bool
}

// SessionRunner runs an authenticated session until it ends.
type SessionRunner interface {
	Run(ctx context.Context, id model.SessionID, sess driving.Session) error
}

// Config holds the listener settings.
type Config struct {
	// Addrs are host:port pairs to listen on.
	Addrs []string
	// HostKeys are the parsed host identity keys.
	HostKeys []gliderssh.Signer
	// Version is sent without the "SSH-2.0-" prefix.
	Version string
}

// Server supervises the SSH listeners and the session handlers they spawn.
type Server struct {
	cfg      Config
	ledger   driven.SchemaPreparer
	auth     Authenticator
	shell    SessionRunner
	registry *application.HandlerRegistry
	logger   *slog.Logger

	srv       *gliderssh.Server
	listeners []net.Listener
	serveWG   sync.WaitGroup
	stopping  atomic.Bool
}

// NewServer creates a Server. Nothing is bound until Start.
func NewServer(
	cfg Config,
	ledger driven.SchemaPreparer,
	auth Authenticator,
	shell SessionRunner,
	registry *application.HandlerRegistry,
	logger *slog.Logger,
) *Server {
	if cfg.Version == "" {
		cfg.Version = DefaultServerVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		ledger:   ledger,
		auth:     auth,
		shell:    shell,
		registry: registry,
		logger:   logger.With("component", "sshd"),
	}
}

// Start prepares the ledger, binds every address and begins serving. If any
// address cannot be bound, the ones already bound are closed and the error is
// returned.
func (s *Server) Start(ctx context.Context) error {
	if len(s.cfg.Addrs) == 0 {
		return errors.New("no listen addresses configured")
	}
	if len(s.cfg.HostKeys) == 0 {
		return errors.New("no host keys configured")
	}

	if err := s.ledger.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare ledger: %w", err)
	}

	listeners, err := bindAll(ctx, s.cfg.Addrs)
	if err != nil {
		return err
	}

	s.srv = &gliderssh.Server{
		Version:                  s.cfg.Version,
		HostSigners:              s.cfg.HostKeys,
		Handler:                  s.handle,
		PasswordHandler:          s.passwordHandler,
		PublicKeyHandler:         s.publicKeyHandler,
		ConnCallback:             s.connCallback,
		ConnectionFailedCallback: s.connectionFailed,
	}
	s.listeners = listeners

	for _, ln := range listeners {
		s.logger.Info("listening", "addr", ln.Addr().String())
		s.serveWG.Add(1)
		go func() {
			defer s.serveWG.Done()
			err := s.srv.Serve(ln)
			if s.stopping.Load() || errors.Is(err, gliderssh.ErrServerClosed) {
				return
			}
			s.logger.Error("listener failed", "addr", ln.Addr().String(), "error", err)
		}()
	}
	return nil
}

func bindAll(ctx context.Context, addrs []string) ([]net.Listener, error) {
	lc := listenConfig()
	listeners := make([]net.Listener, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		g.Go(func() error {
			ln, err := lc.Listen(gctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			listeners[i] = ln
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, ln := range listeners {
			if ln != nil {
				_ = ln.Close()
			}
		}
		return nil, err
	}
	return listeners, nil
}

// Stop closes the listeners, cancels every session handler and waits for them
// to return, then drops any connection still open. ctx bounds the wait. Stop
// must not be called concurrently with itself.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.stopping.Store(true)

	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.serveWG.Wait()

	if n := s.registry.Len(); n > 0 {
		s.logger.Debug("cancelling session handlers", "count", n)
	}
	s.registry.CancelAll()
	waitErr := s.registry.Wait(ctx)

	if err := s.srv.Close(); err != nil {
		s.logger.Debug("closing transport", "error", err)
	}
	if waitErr != nil {
		return fmt.Errorf("wait for session handlers: %w", waitErr)
	}
	return nil
}

// ActiveSessions returns the number of running session handlers.
func (s *Server) ActiveSessions() int {
	return s.registry.Len()
}

// Addrs returns the bound listener addresses.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

func (s *Server) handle(gs gliderssh.Session) {
	id := model.NewSessionID()
	sess := newSession(gs)
	defer sess.close()

	err := s.registry.Go(gs.Context(), id, func(ctx context.Context) error {
		return s.shell.Run(ctx, id, sess)
	})
	switch {
	case err == nil:
		s.logger.Debug("session finished", "session", id.String())
	case errors.Is(err, context.Canceled):
		s.logger.Info("session cancelled", "session", id.String())
	default:
		s.logger.Warn("session ended with error", "session", id.String(), "error", err)
	}
}

func (s *Server) passwordHandler(ctx gliderssh.Context, password string) bool {
	return s.auth.Validate(ctx, ctx.User(), password)
}

func (s *Server) publicKeyHandler(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	return s.auth.ValidatePublicKey(ctx, ctx.User(), gossh.FingerprintSHA256(key))
}

func (s *Server) connCallback(_ gliderssh.Context, conn net.Conn) net.Conn {
	s.logger.Info("connection received", "remote_addr", conn.RemoteAddr().String())
	return &loggedConn{Conn: conn, logger: s.logger}
}

func (s *Server) connectionFailed(conn net.Conn, err error) {
	s.logger.Info("connection failed", "remote_addr", conn.RemoteAddr().String(), "error", err)
}

// loggedConn logs when the transport closes the connection.
type loggedConn struct {
	net.Conn
	logger *slog.Logger
	once   sync.Once
}

func (c *loggedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() {
		c.logger.Info("connection closed", "remote_addr", c.RemoteAddr().String())
	})
	return err
}
