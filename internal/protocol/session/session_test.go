package session

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/frame"
	"github.com/danmuck/armctl/internal/sim"
	"github.com/danmuck/armctl/internal/testutil/testlog"
)

func TestBackoffDelayGrowsToCap(t *testing.T) {
	testlog.Start(t)
	b := BackoffConfig{InitialDelay: 250 * time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Second}
	cases := map[int]time.Duration{
		1: 250 * time.Millisecond,
		2: 500 * time.Millisecond,
		3: time.Second,
		6: 5 * time.Second,
		9: 5 * time.Second,
	}
	for attempt, want := range cases {
		if got := b.Delay(attempt, nil); got != want {
			t.Fatalf("attempt %d: got=%v want=%v", attempt, got, want)
		}
	}
	if got := (BackoffConfig{}).Delay(3, nil); got != 0 {
		t.Fatalf("zero config should not wait, got %v", got)
	}
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	testlog.Start(t)
	b := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		got := b.Delay(2, rng)
		if got < 100*time.Millisecond || got >= 300*time.Millisecond {
			t.Fatalf("jittered delay out of bounds: %v", got)
		}
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ReplyTimeout: time.Second}.WithDefaults()
	d := DefaultConfig()
	if cfg.ReplyTimeout != time.Second {
		t.Fatalf("explicit value overwritten: %v", cfg.ReplyTimeout)
	}
	if cfg.DialAttempts != d.DialAttempts || cfg.Commands != d.Commands || cfg.Replies != d.Replies || cfg.Backoff != d.Backoff {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

type echoRouter struct {
	srv  *Server
	seen []frame.Frame
}

func (r *echoRouter) Dispatch(t protocol.FrameType, payload []byte) protocol.Result {
	r.seen = append(r.seen, frame.Frame{Type: uint8(t), Payload: append([]byte(nil), payload...)})
	if t != protocol.TypeSys {
		return protocol.Next
	}
	_ = r.srv.SendFrame(protocol.TypeState, payload)
	return protocol.Stay
}

func startPipeSession(t *testing.T, srv *Server) (*Client, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(ctx, serverSide) }()
	client := NewClient(clientSide, Config{ReplyTimeout: 2 * time.Second})
	return client, cancel, done
}

func waitSessions(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Sessions() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sessions, have %d", want, srv.Sessions())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeConnRoutesRepliesToSender(t *testing.T) {
	testlog.Start(t)
	srv := NewServer(Config{})
	router := &echoRouter{srv: srv}
	srv.SetRouter(router)

	client, cancel, done := startPipeSession(t, srv)
	defer cancel()

	reply, err := client.Request(protocol.TypeSys, []byte{0x09, 0x08}, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if protocol.FrameType(reply.Type) != protocol.TypeState || !bytes.Equal(reply.Payload, []byte{0x09, 0x08}) {
		t.Fatalf("unexpected reply %+v", reply)
	}

	_ = client.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve conn: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not end after client close")
	}
	if srv.Sessions() != 0 {
		t.Fatalf("session not removed")
	}
}

func TestSendFrameBroadcastsOutsideDispatch(t *testing.T) {
	testlog.Start(t)
	srv := NewServer(Config{})
	srv.SetRouter(&echoRouter{srv: srv})
	if err := srv.SendFrame(protocol.TypeState, []byte{1}); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions, got %v", err)
	}

	client, cancel, _ := startPipeSession(t, srv)
	defer cancel()
	waitSessions(t, srv, 1)

	sent := make(chan error, 1)
	go func() { sent <- srv.SendFrame(protocol.TypeState, []byte{protocol.StateArm, 0, 0, 0, 0}) }()
	f, err := client.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.Payload[0] != protocol.StateArm {
		t.Fatalf("unexpected broadcast %+v", f)
	}
	if err := <-sent; err != nil {
		t.Fatalf("send frame: %v", err)
	}
}

func TestServeConnRejectsOversizedCommand(t *testing.T) {
	testlog.Start(t)
	srv := NewServer(Config{})
	router := &echoRouter{srv: srv}
	srv.SetRouter(router)

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(context.Background(), serverSide) }()

	oversized := frame.Frame{Type: uint8(protocol.TypeSys), Payload: make([]byte, protocol.MaxPayload+1)}
	go func() { _ = frame.WriteFrame(clientSide, oversized, frame.ReplyLimits()) }()

	select {
	case err := <-done:
		if !errors.Is(err, frame.ErrPayloadTooLarge) {
			t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not end on oversized command")
	}
	if len(router.seen) != 0 {
		t.Fatalf("oversized command must not be dispatched")
	}
}

func TestServeRequiresRouter(t *testing.T) {
	testlog.Start(t)
	srv := NewServer(Config{})
	a, b := net.Pipe()
	defer b.Close()
	if err := srv.ServeConn(context.Background(), a); !errors.Is(err, ErrNoRouter) {
		t.Fatalf("expected ErrNoRouter, got %v", err)
	}
}

func TestDialServeEndToEndWithSimulator(t *testing.T) {
	testlog.Start(t)
	srv := NewServer(Config{})
	act, _ := sim.Actuators(sim.NewBank(sim.DefaultConfig()))
	srv.SetRouter(protocol.NewDispatcher(protocol.Config{DeviceName: "bench"}, srv, act))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	client, err := Dial(ctx, ln.Addr().String(), Config{DialAttempts: 3})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	pong, err := client.Request(protocol.TypeSys, protocol.EncodePing([]byte{0x11, 0x22, 0x33}), SysReply(protocol.SysPong))
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !bytes.Equal(pong.Payload, []byte{0x02, 0x11, 0x22, 0x33}) {
		t.Fatalf("unexpected pong % x", pong.Payload)
	}

	if err := client.Send(protocol.TypeServo, protocol.EncodeServoSetPWM(2, 1500, 200)); err != nil {
		t.Fatalf("set pwm: %v", err)
	}
	status, err := client.Request(protocol.TypeServo, protocol.EncodeServoGetStatus(2), StateReply(protocol.StateServo))
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	st, err := protocol.DecodeServoState(status.Payload[1:])
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.ID != 2 || st.CurrentPWM != 1500 {
		t.Fatalf("unexpected servo state %+v", st)
	}

	cancel()
	if err := <-served; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
