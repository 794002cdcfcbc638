package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/admin"
	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/session"
	"github.com/danmuck/armctl/internal/testutil/testlog"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestDeviceServesLinkAndAdmin(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultDeviceConfig()
	cfg.Name = "bench-arm"
	cfg.TickInterval = 5 * time.Millisecond
	d := newDevice(cfg)

	linkLn, adminLn := listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, linkLn, adminLn) }()

	client, err := session.Dial(ctx, linkLn.Addr().String(), session.Config{DialAttempts: 5})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	reply, err := client.Request(protocol.TypeSys, protocol.EncodeGetInfo(), session.SysReply(protocol.SysInfo))
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	info, err := protocol.DecodeInfo(reply.Payload[1:])
	if err != nil || info.Name != "bench-arm" {
		t.Fatalf("unexpected info %+v err=%v", info, err)
	}

	create, err := protocol.EncodeCycleCreate(protocol.ModePWM, []uint8{0}, [][]float64{{1000}, {2000}}, []uint32{10, 10}, 1)
	if err != nil {
		t.Fatalf("encode cycle: %v", err)
	}
	reply, err = client.Request(protocol.TypeMotionCycle, create, session.StateReply(protocol.StateCycle))
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	index := uint32(reply.Payload[1])
	if err := client.Send(protocol.TypeMotionCycle, protocol.EncodeIndexCommand(protocol.CycleStart, index)); err != nil {
		t.Fatalf("start cycle: %v", err)
	}

	url := fmt.Sprintf("http://%s/cycles", adminLn.Addr().String())
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("get cycles: %v", err)
		}
		var st admin.CycleStatus
		err = json.NewDecoder(resp.Body).Decode(&st)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode cycles: %v", err)
		}
		if len(st.Cycles) == 1 && !st.Cycles[0].Running && st.Cycles[0].Loops == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cycle never finished: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("device did not stop")
	}
}
