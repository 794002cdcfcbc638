package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/armctl/internal/observability"
	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoRouter   = errors.New("session: no router attached")
	ErrNoSessions = errors.New("session: no open sessions")
)

// Router receives inbound frames. *protocol.Dispatcher satisfies it.
type Router interface {
	Dispatch(t protocol.FrameType, payload []byte) protocol.Result
}

type linkConn struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

// Server accepts bench link connections and implements protocol.Transport.
// Replies emitted while a frame is being dispatched go to the session that
// sent it; frames emitted outside a dispatch go to every open session.
type Server struct {
	cfg    Config
	router Router

	mu       sync.Mutex
	sessions map[string]*linkConn

	dispatchMu sync.Mutex
	active     atomic.Pointer[linkConn]
}

var _ protocol.Transport = (*Server)(nil)

func NewServer(cfg Config) *Server {
	return &Server{
		cfg:      cfg.WithDefaults(),
		sessions: make(map[string]*linkConn),
	}
}

// SetRouter attaches the frame consumer. It must be called before Serve.
func (s *Server) SetRouter(r Router) {
	s.router = r
}

// Serve accepts connections from ln until ctx is done or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.router == nil {
		return ErrNoRouter
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("link listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session accept: %w", err)
		}
		go func() {
			if err := s.ServeConn(ctx, conn); err != nil {
				log.Warn().Err(err).Msg("link session ended")
			}
		}()
	}
}

// ServeConn runs one session until the peer disconnects or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	if s.router == nil {
		_ = conn.Close()
		return ErrNoRouter
	}
	c := &linkConn{id: uuid.NewString(), conn: conn}
	s.add(c)
	defer s.remove(c)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger := log.With().Str("session", c.id).Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("link session opened")
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		f, err := frame.ReadFrame(conn, s.cfg.Commands)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info().Msg("link session closed")
				return nil
			}
			return fmt.Errorf("session %s read: %w", c.id, err)
		}
		res := s.deliver(c, f)
		logger.Trace().
			Str("family", protocol.FrameType(f.Type).String()).
			Int("len", len(f.Payload)).
			Str("result", res.String()).
			Msg("frame delivered")
	}
}

func (s *Server) deliver(c *linkConn, f frame.Frame) protocol.Result {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.active.Store(c)
	defer s.active.Store(nil)
	return s.router.Dispatch(protocol.FrameType(f.Type), f.Payload)
}

// SendFrame implements protocol.Transport.
func (s *Server) SendFrame(t protocol.FrameType, payload []byte) error {
	if c := s.active.Load(); c != nil {
		return s.write(c, t, payload)
	}
	targets := s.snapshot()
	if len(targets) == 0 {
		return ErrNoSessions
	}
	var errs []error
	for _, c := range targets {
		if err := s.write(c, t, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sessions reports the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) write(c *linkConn, t protocol.FrameType, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if err := frame.WriteFrame(c.conn, frame.Frame{Type: uint8(t), Payload: payload}, s.cfg.Replies); err != nil {
		return fmt.Errorf("session %s write: %w", c.id, err)
	}
	return nil
}

func (s *Server) add(c *linkConn) {
	s.mu.Lock()
	s.sessions[c.id] = c
	s.mu.Unlock()
	observability.AddLinkSessions(1)
}

func (s *Server) remove(c *linkConn) {
	s.mu.Lock()
	delete(s.sessions, c.id)
	s.mu.Unlock()
	_ = c.conn.Close()
	observability.AddLinkSessions(-1)
}

func (s *Server) snapshot() []*linkConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*linkConn, 0, len(s.sessions))
	for _, c := range s.sessions {
		out = append(out, c)
	}
	return out
}
