package protocol

// Transport emits one frame. Implementations must not retain payload after
// SendFrame returns.
type Transport interface {
	SendFrame(t FrameType, payload []byte) error
}

// ServoState is the snapshot reported by SERVO GET_STATUS.
type ServoState struct {
	ID          uint8
	Moving      bool
	CurrentPWM  uint32
	TargetAngle float32
	RemainingMS uint32
}

// ServoDriver drives individual servos.
type ServoDriver interface {
	SyncOutputs() error
	Stop(id uint8) error
	// StopAll halts every servo and leaves outputs enabled.
	StopAll() error
	// EmergencyStopAll halts every servo and disables outputs.
	EmergencyStopAll() error
	MovePWM(id uint8, pwm, durationMS uint32) error
	MoveAngle(id uint8, angle float32, durationMS uint32) error
	State(id uint8) (ServoState, error)
}

// GroupRequest describes a synchronized move. Slices are borrowed for the
// duration of the Start call; only the slice matching Mode is populated.
type GroupRequest struct {
	Mode       Mode
	DurationMS uint32
	IDs        []uint8
	PWM        []uint32
	Angles     []float32
}

// GroupStatus is the snapshot reported by MOTION GET_STATUS.
type GroupStatus struct {
	GroupID    uint32
	MovingMask uint32
	Complete   bool
}

// MotionGroups runs synchronized multi-servo moves addressed by group id.
type MotionGroups interface {
	Start(req GroupRequest) (uint32, error)
	Release(groupID uint32) error
	Pause(groupID uint32) error
	Restart(groupID uint32) error
	Status(groupID uint32) (GroupStatus, error)
}

// CycleEngine replays staged pose sequences. Create returns the engine cycle
// index; a negative index is a failure.
type CycleEngine interface {
	Create(spec CycleSpec) (int, error)
	Start(index uint32) error
	Restart(index uint32) error
	Pause(index uint32) error
	Release(index uint32) error
}

// ArmKinematics moves the fixed arm joints (ids 0..ArmJointCount-1).
type ArmKinematics interface {
	HomeJoint(joint uint8, durationMS uint32) error
	MovePose(angles []float32, durationMS uint32) error
	MovingMask() uint32
}

// Actuators bundles the collaborators the family handlers drive.
type Actuators struct {
	Servos ServoDriver
	Groups MotionGroups
	Cycles CycleEngine
	Arm    ArmKinematics
}
