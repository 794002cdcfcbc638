package protocol

// FrameType is the frame type tag used to select a command family.
type FrameType uint8

// Frame types on the wire.
const (
	TypeSys         FrameType = 0x01
	TypeServo       FrameType = 0x10
	TypeMotion      FrameType = 0x11
	TypeArm         FrameType = 0x12
	TypeMotionCycle FrameType = 0x13
	TypeState       FrameType = 0xD0
	TypeConfig      FrameType = 0xE0
	TypeDebug       FrameType = 0xF0
)

func (t FrameType) String() string {
	switch t {
	case TypeSys:
		return "sys"
	case TypeServo:
		return "servo"
	case TypeMotion:
		return "motion"
	case TypeArm:
		return "arm"
	case TypeMotionCycle:
		return "motion_cycle"
	case TypeState:
		return "state"
	case TypeConfig:
		return "config"
	case TypeDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Protocol limits and metadata.
const (
	MaxPayload    = 256
	MaxServos     = 6
	ArmJointCount = 6
	MaxPoses      = 8
	CycleSlots    = 5

	VersionMajor uint8 = 1
	VersionMinor uint8 = 0

	DefaultDeviceName   = "armctl"
	DefaultHomeDuration = 1000
)

// System family sub-commands.
const (
	SysPing      uint8 = 0x01
	SysPong      uint8 = 0x02
	SysReset     uint8 = 0x03
	SysGetInfo   uint8 = 0x04
	SysInfo      uint8 = 0x05
	SysHeartbeat uint8 = 0x06
)

// Servo family sub-commands.
const (
	ServoEnable    uint8 = 0x01
	ServoDisable   uint8 = 0x02
	ServoSetPWM    uint8 = 0x03
	ServoSetPos    uint8 = 0x04
	ServoGetStatus uint8 = 0x05
	ServoStatus    uint8 = 0x06
)

// Synchronized-motion family sub-commands.
const (
	MotionStart     uint8 = 0x01
	MotionStop      uint8 = 0x02
	MotionPause     uint8 = 0x03
	MotionResume    uint8 = 0x04
	MotionSetPlan   uint8 = 0x05
	MotionGetStatus uint8 = 0x06
	MotionStatus    uint8 = 0x07
)

// Arm family sub-commands.
const (
	ArmHome      uint8 = 0x01
	ArmStop      uint8 = 0x02
	ArmSetPose   uint8 = 0x03
	ArmGetStatus uint8 = 0x04
	ArmStatus    uint8 = 0x05
)

// Configuration family sub-commands.
const (
	ConfigGet   uint8 = 0x01
	ConfigSet   uint8 = 0x02
	ConfigSave  uint8 = 0x03
	ConfigLoad  uint8 = 0x04
	ConfigReset uint8 = 0x05
)

// Motion-cycle family sub-commands.
const (
	CycleCreate    uint8 = 0x01
	CycleStart     uint8 = 0x02
	CycleRestart   uint8 = 0x03
	CyclePause     uint8 = 0x04
	CycleRelease   uint8 = 0x05
	CycleGetStatus uint8 = 0x06
	CycleStatus    uint8 = 0x07
)

// State sub-commands carried in TypeState frames.
const (
	StateSys    uint8 = 0x01
	StateServo  uint8 = 0x02
	StateMotion uint8 = 0x03
	StateArm    uint8 = 0x04
	StateConfig uint8 = 0x05
	StateCycle  uint8 = 0x06
)

// Mode selects how motion values are encoded.
type Mode uint8

const (
	ModePWM   Mode = 0
	ModeAngle Mode = 1
)

func (m Mode) Valid() bool {
	return m == ModePWM || m == ModeAngle
}

func (m Mode) String() string {
	switch m {
	case ModePWM:
		return "pwm"
	case ModeAngle:
		return "angle"
	default:
		return "invalid"
	}
}
