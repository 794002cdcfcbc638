package protocol

import (
	"github.com/rs/zerolog/log"
)

// lengthRule bounds a sub-command parameter length, inclusive.
type lengthRule struct {
	min int
	max int
}

func exact(n int) lengthRule { return lengthRule{min: n, max: n} }

func atLeast(n int) lengthRule { return lengthRule{min: n, max: MaxPayload} }

var anyLength = lengthRule{min: 0, max: MaxPayload}

func schemaKey(t FrameType, cmd uint8) uint16 {
	return uint16(t)<<8 | uint16(cmd)
}

// Parameter length rules keyed by frame type and sub-command. Variable
// sections (motion start, cycle create) are finished by their decoders.
var schemas = map[uint16]lengthRule{
	schemaKey(TypeSys, SysPing):      anyLength,
	schemaKey(TypeSys, SysPong):      anyLength,
	schemaKey(TypeSys, SysGetInfo):   anyLength,
	schemaKey(TypeSys, SysInfo):      anyLength,
	schemaKey(TypeSys, SysHeartbeat): anyLength,
	schemaKey(TypeSys, SysReset):     anyLength,

	schemaKey(TypeServo, ServoEnable):    anyLength,
	schemaKey(TypeServo, ServoDisable):   {min: 0, max: 1},
	schemaKey(TypeServo, ServoSetPWM):    exact(9),
	schemaKey(TypeServo, ServoSetPos):    exact(9),
	schemaKey(TypeServo, ServoGetStatus): exact(1),
	schemaKey(TypeServo, ServoStatus):    anyLength,

	schemaKey(TypeMotion, MotionStart):     atLeast(6),
	schemaKey(TypeMotion, MotionStop):      exact(4),
	schemaKey(TypeMotion, MotionPause):     exact(4),
	schemaKey(TypeMotion, MotionResume):    exact(4),
	schemaKey(TypeMotion, MotionSetPlan):   anyLength,
	schemaKey(TypeMotion, MotionGetStatus): exact(4),
	schemaKey(TypeMotion, MotionStatus):    anyLength,

	schemaKey(TypeArm, ArmHome):      {min: 0, max: 4},
	schemaKey(TypeArm, ArmStop):      anyLength,
	schemaKey(TypeArm, ArmSetPose):   exact(4 + ArmJointCount*4),
	schemaKey(TypeArm, ArmGetStatus): anyLength,
	schemaKey(TypeArm, ArmStatus):    anyLength,

	schemaKey(TypeConfig, ConfigGet):   anyLength,
	schemaKey(TypeConfig, ConfigSet):   anyLength,
	schemaKey(TypeConfig, ConfigSave):  anyLength,
	schemaKey(TypeConfig, ConfigLoad):  anyLength,
	schemaKey(TypeConfig, ConfigReset): anyLength,

	schemaKey(TypeMotionCycle, CycleCreate):    atLeast(7),
	schemaKey(TypeMotionCycle, CycleStart):     exact(4),
	schemaKey(TypeMotionCycle, CycleRestart):   exact(4),
	schemaKey(TypeMotionCycle, CyclePause):     exact(4),
	schemaKey(TypeMotionCycle, CycleRelease):   exact(4),
	schemaKey(TypeMotionCycle, CycleGetStatus): anyLength,
	schemaKey(TypeMotionCycle, CycleStatus):    anyLength,
}

// Validate checks that cmd is known for t and that n parameter bytes fit its
// length rule.
func Validate(t FrameType, cmd uint8, n int) error {
	rule, ok := schemas[schemaKey(t, cmd)]
	if !ok {
		log.Debug().Str("family", t.String()).Uint8("cmd", cmd).Msg("schema: unknown command")
		return SchemaError{Type: t, Cmd: cmd, Len: n, Reason: "unknown command", Err: ErrUnknownCommand}
	}
	if n < rule.min || n > rule.max {
		log.Debug().
			Str("family", t.String()).
			Uint8("cmd", cmd).
			Int("len", n).
			Int("min", rule.min).
			Int("max", rule.max).
			Msg("schema: length mismatch")
		return SchemaError{Type: t, Cmd: cmd, Len: n, Reason: "length mismatch", Err: ErrInvalidLength}
	}
	return nil
}
