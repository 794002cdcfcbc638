package sim

import (
	"fmt"

	"github.com/danmuck/armctl/internal/protocol"
)

// Arm maps the fixed arm joints onto bank servos 0..ArmJointCount-1. It
// implements protocol.ArmKinematics.
type Arm struct {
	bank *Bank
	home float32
}

var _ protocol.ArmKinematics = (*Arm)(nil)

func NewArm(bank *Bank) *Arm {
	return &Arm{bank: bank, home: bank.cfg.HomeAngle}
}

func (a *Arm) HomeJoint(joint uint8, durationMS uint32) error {
	if int(joint) >= protocol.ArmJointCount {
		return fmt.Errorf("%w: joint %d", ErrInvalidServo, joint)
	}
	return a.bank.MoveAngle(joint, a.home, durationMS)
}

// MovePose validates every angle before moving any joint.
func (a *Arm) MovePose(angles []float32, durationMS uint32) error {
	if len(angles) != protocol.ArmJointCount {
		return fmt.Errorf("%w: %d", ErrInvalidJoints, len(angles))
	}
	for i, angle := range angles {
		if !a.bank.cfg.validAngle(angle) {
			return fmt.Errorf("%w: joint %d angle %v", ErrInvalidAngle, i, angle)
		}
	}
	for i, angle := range angles {
		if err := a.bank.MoveAngle(uint8(i), angle, durationMS); err != nil {
			return err
		}
	}
	return nil
}

func (a *Arm) MovingMask() uint32 {
	return a.bank.MovingMask()
}

// Actuators bundles a bank with its group, cycle and arm collaborators.
func Actuators(bank *Bank) (protocol.Actuators, *Cycles) {
	cycles := NewCycles(bank)
	return protocol.Actuators{
		Servos: bank,
		Groups: NewGroups(bank),
		Cycles: cycles,
		Arm:    NewArm(bank),
	}, cycles
}
