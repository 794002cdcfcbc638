package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/frame"
	"github.com/danmuck/armctl/internal/testutil/testlog"
)

func TestBuildRequestEncodesCommands(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name  string
		args  []string
		typ   protocol.FrameType
		want  []byte
		reply bool
	}{
		{name: "ping", args: []string{"ping", "112233"}, typ: protocol.TypeSys, want: []byte{0x01, 0x11, 0x22, 0x33}, reply: true},
		{name: "pwm", args: []string{"pwm", "2", "1500", "200"}, typ: protocol.TypeServo, want: protocol.EncodeServoSetPWM(2, 1500, 200)},
		{name: "disable one", args: []string{"disable", "4"}, typ: protocol.TypeServo, want: []byte{protocol.ServoDisable, 4}},
		{name: "group status", args: []string{"group", "status", "7"}, typ: protocol.TypeMotion, want: protocol.EncodeIndexCommand(protocol.MotionGetStatus, 7), reply: true},
		{name: "home default", args: []string{"home"}, typ: protocol.TypeArm, want: protocol.EncodeArmHome(protocol.DefaultHomeDuration)},
		{name: "cycle release", args: []string{"cycle", "release", "3"}, typ: protocol.TypeMotionCycle, want: protocol.EncodeIndexCommand(protocol.CycleRelease, 3)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := buildRequest(tc.args)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if req.Type != tc.typ || !bytes.Equal(req.Payload, tc.want) {
				t.Fatalf("got type=%s payload=% x", req.Type, req.Payload)
			}
			if (req.Match != nil) != tc.reply {
				t.Fatalf("reply expectation mismatch")
			}
		})
	}
}

func TestBuildCycleCreate(t *testing.T) {
	testlog.Start(t)
	req, err := buildRequest([]string{"cycle", "create", "angle", "0", "0,1", "500:0,90", "500:90,0"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want, err := protocol.EncodeCycleCreate(protocol.ModeAngle, []uint8{0, 1}, [][]float64{{0, 90}, {90, 0}}, []uint32{500, 500}, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(req.Payload, want) {
		t.Fatalf("payload mismatch")
	}
}

func TestBuildRequestRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	bad := [][]string{
		nil,
		{"warp"},
		{"pwm", "2", "1500"},
		{"pwm", "300", "1500", "10"},
		{"move", "pwm", "10", "1:1500"},
		{"pose", "10", "1", "2"},
		{"group", "spin", "1"},
		{"cycle", "create", "pwm", "0", "0", "nope"},
	}
	for _, args := range bad {
		if _, err := buildRequest(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

type fakeLink struct {
	sent  []byte
	reply frame.Frame
	err   error
}

func (f *fakeLink) Send(_ protocol.FrameType, payload []byte) error {
	f.sent = payload
	return f.err
}

func (f *fakeLink) Request(_ protocol.FrameType, payload []byte, _ func(frame.Frame) bool) (frame.Frame, error) {
	f.sent = payload
	return f.reply, f.err
}

func TestExecuteDescribesReplies(t *testing.T) {
	testlog.Start(t)
	link := &fakeLink{reply: frame.Frame{
		Type:    uint8(protocol.TypeState),
		Payload: []byte{protocol.StateCycle, 3},
	}}
	req, _ := buildRequest([]string{"cycle", "create", "pwm", "0", "0", "10:1500"})
	var out strings.Builder
	if err := execute(link, req, &out); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "cycle 3 created" {
		t.Fatalf("unexpected output %q", out.String())
	}

	link.err = errors.New("down")
	if err := execute(link, request{Type: protocol.TypeArm, Payload: []byte{protocol.ArmStop}}, &out); err == nil {
		t.Fatalf("expected send error")
	}
}
