package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var ErrNoReply = errors.New("session: no matching reply")

// Client is the host end of a bench link.
type Client struct {
	cfg  Config
	conn net.Conn
}

// Dial connects to addr, retrying with backoff up to cfg.DialAttempts.
func Dial(ctx context.Context, addr string, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return NewClient(conn, cfg), nil
		}
		lastErr = err
		if attempt == cfg.DialAttempts {
			break
		}
		delay := cfg.Backoff.Delay(attempt, rng)
		log.Debug().
			Str("addr", addr).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Err(err).
			Msg("link dial failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("session dial %s after %d attempts: %w", addr, cfg.DialAttempts, lastErr)
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, cfg Config) *Client {
	return &Client{cfg: cfg.WithDefaults(), conn: conn}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one frame.
func (c *Client) Send(t protocol.FrameType, payload []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return frame.WriteFrame(c.conn, frame.Frame{Type: uint8(t), Payload: payload}, c.cfg.Commands)
}

// Receive reads one frame, waiting at most cfg.ReplyTimeout.
func (c *Client) Receive() (frame.Frame, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReplyTimeout))
	return frame.ReadFrame(c.conn, c.cfg.Replies)
}

// Request sends one frame and waits for the first reply accepted by match.
// Frames that do not match are skipped.
func (c *Client) Request(t protocol.FrameType, payload []byte, match func(frame.Frame) bool) (frame.Frame, error) {
	if err := c.Send(t, payload); err != nil {
		return frame.Frame{}, err
	}
	deadline := time.Now().Add(c.cfg.ReplyTimeout)
	for time.Now().Before(deadline) {
		f, err := c.Receive()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return frame.Frame{}, ErrNoReply
			}
			return frame.Frame{}, err
		}
		if match == nil || match(f) {
			return f, nil
		}
	}
	return frame.Frame{}, ErrNoReply
}

// StateReply matches a TypeState frame carrying cmd.
func StateReply(cmd uint8) func(frame.Frame) bool {
	return func(f frame.Frame) bool {
		return protocol.FrameType(f.Type) == protocol.TypeState && len(f.Payload) > 0 && f.Payload[0] == cmd
	}
}

// SysReply matches a TypeSys frame carrying cmd.
func SysReply(cmd uint8) func(frame.Frame) bool {
	return func(f frame.Frame) bool {
		return protocol.FrameType(f.Type) == protocol.TypeSys && len(f.Payload) > 0 && f.Payload[0] == cmd
	}
}
