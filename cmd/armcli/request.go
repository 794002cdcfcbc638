package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/protocol/frame"
	"github.com/danmuck/armctl/internal/protocol/session"
)

var errUsage = errors.New("invalid arguments")

// request is one frame to send plus the reply it waits for. A nil match
// sends without waiting.
type request struct {
	Type    protocol.FrameType
	Payload []byte
	Match   func(frame.Frame) bool
}

func buildRequest(args []string) (request, error) {
	if len(args) == 0 {
		return request{}, errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ping":
		var data []byte
		if len(rest) > 0 {
			b, err := hex.DecodeString(rest[0])
			if err != nil {
				return request{}, fmt.Errorf("ping data: %w", err)
			}
			data = b
		}
		return request{protocol.TypeSys, protocol.EncodePing(data), session.SysReply(protocol.SysPong)}, nil
	case "info":
		return request{protocol.TypeSys, protocol.EncodeGetInfo(), session.SysReply(protocol.SysInfo)}, nil
	case "enable":
		return request{Type: protocol.TypeServo, Payload: []byte{protocol.ServoEnable}}, nil
	case "disable":
		payload := []byte{protocol.ServoDisable}
		if len(rest) > 0 {
			id, err := parseU8(rest[0])
			if err != nil {
				return request{}, err
			}
			payload = append(payload, id)
		}
		return request{Type: protocol.TypeServo, Payload: payload}, nil
	case "pwm", "pos":
		if len(rest) != 3 {
			return request{}, errUsage
		}
		id, err := parseU8(rest[0])
		if err != nil {
			return request{}, err
		}
		dur, err := parseU32(rest[2])
		if err != nil {
			return request{}, err
		}
		if cmd == "pwm" {
			pwm, err := parseU32(rest[1])
			if err != nil {
				return request{}, err
			}
			return request{Type: protocol.TypeServo, Payload: protocol.EncodeServoSetPWM(id, pwm, dur)}, nil
		}
		angle, err := strconv.ParseFloat(rest[1], 32)
		if err != nil {
			return request{}, err
		}
		return request{Type: protocol.TypeServo, Payload: protocol.EncodeServoSetPos(id, float32(angle), dur)}, nil
	case "status":
		if len(rest) != 1 {
			return request{}, errUsage
		}
		id, err := parseU8(rest[0])
		if err != nil {
			return request{}, err
		}
		return request{protocol.TypeServo, protocol.EncodeServoGetStatus(id), session.StateReply(protocol.StateServo)}, nil
	case "move":
		return buildMove(rest)
	case "group":
		if len(rest) != 2 {
			return request{}, errUsage
		}
		id, err := parseU32(rest[1])
		if err != nil {
			return request{}, err
		}
		sub := map[string]uint8{
			"stop":   protocol.MotionStop,
			"pause":  protocol.MotionPause,
			"resume": protocol.MotionResume,
			"status": protocol.MotionGetStatus,
		}
		c, ok := sub[rest[0]]
		if !ok {
			return request{}, fmt.Errorf("unknown group command %q", rest[0])
		}
		req := request{Type: protocol.TypeMotion, Payload: protocol.EncodeIndexCommand(c, id)}
		if c == protocol.MotionGetStatus {
			req.Match = session.StateReply(protocol.StateMotion)
		}
		return req, nil
	case "home":
		dur := uint32(protocol.DefaultHomeDuration)
		if len(rest) > 0 {
			d, err := parseU32(rest[0])
			if err != nil {
				return request{}, err
			}
			dur = d
		}
		return request{Type: protocol.TypeArm, Payload: protocol.EncodeArmHome(dur)}, nil
	case "stop":
		return request{Type: protocol.TypeArm, Payload: []byte{protocol.ArmStop}}, nil
	case "arm-status":
		return request{protocol.TypeArm, []byte{protocol.ArmGetStatus}, session.StateReply(protocol.StateArm)}, nil
	case "pose":
		if len(rest) != 1+protocol.ArmJointCount {
			return request{}, errUsage
		}
		dur, err := parseU32(rest[0])
		if err != nil {
			return request{}, err
		}
		var angles [protocol.ArmJointCount]float32
		for i := range angles {
			v, err := strconv.ParseFloat(rest[1+i], 32)
			if err != nil {
				return request{}, err
			}
			angles[i] = float32(v)
		}
		return request{Type: protocol.TypeArm, Payload: protocol.EncodeArmSetPose(angles, dur)}, nil
	case "cycle":
		return buildCycle(rest)
	case "config-get":
		return request{protocol.TypeConfig, []byte{protocol.ConfigGet}, session.StateReply(protocol.StateConfig)}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", cmd)
	}
}

// buildMove parses `<mode> <ms> <id=value>...`.
func buildMove(args []string) (request, error) {
	if len(args) < 3 {
		return request{}, errUsage
	}
	mode, err := parseMode(args[0])
	if err != nil {
		return request{}, err
	}
	dur, err := parseU32(args[1])
	if err != nil {
		return request{}, err
	}
	ids := make([]uint8, 0, len(args)-2)
	values := make([]float64, 0, len(args)-2)
	for _, pair := range args[2:] {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return request{}, fmt.Errorf("expected id=value, got %q", pair)
		}
		id, err := parseU8(k)
		if err != nil {
			return request{}, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return request{}, err
		}
		ids = append(ids, id)
		values = append(values, f)
	}
	payload, err := protocol.EncodeMotionStart(mode, ids, values, dur)
	if err != nil {
		return request{}, err
	}
	return request{protocol.TypeMotion, payload, session.StateReply(protocol.StateMotion)}, nil
}

// buildCycle parses `create <mode> <loops> <id,id> <ms:v,v>...` or
// `<start|restart|pause|release> <index>`.
func buildCycle(args []string) (request, error) {
	if len(args) == 0 {
		return request{}, errUsage
	}
	if args[0] != "create" {
		if len(args) != 2 {
			return request{}, errUsage
		}
		sub := map[string]uint8{
			"start":   protocol.CycleStart,
			"restart": protocol.CycleRestart,
			"pause":   protocol.CyclePause,
			"release": protocol.CycleRelease,
		}
		c, ok := sub[args[0]]
		if !ok {
			return request{}, fmt.Errorf("unknown cycle command %q", args[0])
		}
		index, err := parseU32(args[1])
		if err != nil {
			return request{}, err
		}
		return request{Type: protocol.TypeMotionCycle, Payload: protocol.EncodeIndexCommand(c, index)}, nil
	}

	if len(args) < 5 {
		return request{}, errUsage
	}
	mode, err := parseMode(args[1])
	if err != nil {
		return request{}, err
	}
	loops, err := parseU32(args[2])
	if err != nil {
		return request{}, err
	}
	var ids []uint8
	for _, raw := range strings.Split(args[3], ",") {
		id, err := parseU8(raw)
		if err != nil {
			return request{}, err
		}
		ids = append(ids, id)
	}
	var poses [][]float64
	var durations []uint32
	for _, raw := range args[4:] {
		ms, values, ok := strings.Cut(raw, ":")
		if !ok {
			return request{}, fmt.Errorf("expected ms:v,v pose, got %q", raw)
		}
		d, err := parseU32(ms)
		if err != nil {
			return request{}, err
		}
		var pose []float64
		for _, v := range strings.Split(values, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return request{}, err
			}
			pose = append(pose, f)
		}
		durations = append(durations, d)
		poses = append(poses, pose)
	}
	payload, err := protocol.EncodeCycleCreate(mode, ids, poses, durations, loops)
	if err != nil {
		return request{}, err
	}
	return request{protocol.TypeMotionCycle, payload, session.StateReply(protocol.StateCycle)}, nil
}

// linkClient is the subset of *session.Client used to run a request.
type linkClient interface {
	Send(t protocol.FrameType, payload []byte) error
	Request(t protocol.FrameType, payload []byte, match func(frame.Frame) bool) (frame.Frame, error)
}

func execute(c linkClient, req request, out io.Writer) error {
	if req.Match == nil {
		if err := c.Send(req.Type, req.Payload); err != nil {
			return err
		}
		fmt.Fprintln(out, "sent")
		return nil
	}
	reply, err := c.Request(req.Type, req.Payload, req.Match)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, describe(reply))
	return nil
}

// describe renders a reply frame for humans.
func describe(f frame.Frame) string {
	t := protocol.FrameType(f.Type)
	if len(f.Payload) == 0 {
		return fmt.Sprintf("%s (empty)", t)
	}
	cmd, body := f.Payload[0], f.Payload[1:]
	switch {
	case t == protocol.TypeSys && cmd == protocol.SysPong:
		return fmt.Sprintf("pong %s", hex.EncodeToString(body))
	case t == protocol.TypeSys && cmd == protocol.SysInfo:
		if info, err := protocol.DecodeInfo(body); err == nil {
			return fmt.Sprintf("%s v%d.%d", info.Name, info.Major, info.Minor)
		}
	case t == protocol.TypeState && cmd == protocol.StateServo:
		if st, err := protocol.DecodeServoState(body); err == nil {
			return fmt.Sprintf("servo %d moving=%t pwm=%d target=%.2f remaining=%dms",
				st.ID, st.Moving, st.CurrentPWM, st.TargetAngle, st.RemainingMS)
		}
	case t == protocol.TypeState && cmd == protocol.StateMotion:
		if st, err := protocol.DecodeMotionStatus(body); err == nil {
			return fmt.Sprintf("group %d moving_mask=%#x complete=%t", st.GroupID, st.MovingMask, st.Complete)
		}
		if id, err := protocol.ReadU32(body, 0, len(body)); err == nil && len(body) == 4 {
			return fmt.Sprintf("group %d started", id)
		}
	case t == protocol.TypeState && cmd == protocol.StateArm:
		if mask, err := protocol.ReadU32(body, 0, len(body)); err == nil {
			return fmt.Sprintf("arm moving_mask=%#x", mask)
		}
	case t == protocol.TypeState && cmd == protocol.StateCycle && len(body) == 1:
		return fmt.Sprintf("cycle %d created", body[0])
	}
	return fmt.Sprintf("%s cmd=%#x % x", t, cmd, body)
}

func parseMode(raw string) (protocol.Mode, error) {
	switch raw {
	case "pwm":
		return protocol.ModePWM, nil
	case "angle":
		return protocol.ModeAngle, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", raw)
	}
}

func parseU8(raw string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return uint8(v), nil
}

func parseU32(raw string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return uint32(v), nil
}
