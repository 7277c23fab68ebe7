package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/redcon"

	"github.com/KilimcininKorOglu/quorum/internal/logging"
	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// DefaultRequestTimeout bounds a single SUBMIT or QUERY.
const DefaultRequestTimeout = 5 * time.Second

// Backend is the node capability a client endpoint serves.
type Backend interface {
	Status() raft.Status
	LeaderClientEndpoint() (raft.Endpoint, bool)
	Apply(ctx context.Context, cmd []byte) ([]byte, error)
	Query(ctx context.Context, query []byte) ([]byte, error)
}

// Config holds configuration for a Server.
type Config struct {
	Addr           string
	Backend        Backend
	Logger         logging.Logger
	RequestTimeout time.Duration
}

// Server is a RESP endpoint in front of one node.
type Server struct {
	addr     string
	backend  Backend
	logger   logging.Logger
	timeout  time.Duration
	handlers map[string]CommandHandler

	mu       sync.Mutex
	srv      *redcon.Server
	listener net.Listener
	done     chan struct{}

	clients atomic.Int64
}

// New creates a server that is not yet listening.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		addr:    cfg.Addr,
		backend: cfg.Backend,
		logger:  cfg.Logger,
		timeout: cfg.RequestTimeout,
	}
	s.handlers = s.commands()
	return s
}

// Start binds the listen address and serves in the background. Bind
// errors are returned; calling Start on a serving server is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := redcon.NewServer(s.addr,
		s.handleCommand,
		s.handleAccept,
		s.handleClose,
	)
	done := make(chan struct{})

	s.srv = srv
	s.listener = ln
	s.done = done

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil {
			s.logger.Warn("client endpoint stopped serving", "error", err)
		}
	}()

	s.logger.Info("client endpoint listening", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener and every client connection, then waits for the
// serve loop to exit. Stopping a server that is not serving is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, ln, done := s.srv, s.listener, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	// Close reports "not serving" when Serve has not picked up the
	// listener yet; closing it directly makes Serve return.
	if err := srv.Close(); err != nil {
		ln.Close()
	}
	<-done
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Clients returns the number of open client connections.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

func (s *Server) handleAccept(conn redcon.Conn) bool {
	s.clients.Add(1)
	s.logger.Debug("client connected", "remote", conn.RemoteAddr())
	return true
}

func (s *Server) handleClose(conn redcon.Conn, err error) {
	s.clients.Add(-1)
	s.logger.Debug("client disconnected", "remote", conn.RemoteAddr())
}

func (s *Server) handleCommand(conn redcon.Conn, cmd redcon.Command) {
	s.execute(conn, cmd.Args)

	for _, p := range conn.ReadPipeline() {
		s.execute(conn, p.Args)
	}
}
