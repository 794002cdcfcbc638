package admin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/armctl/internal/protocol"
	"github.com/danmuck/armctl/internal/sim"
)

// Service exposes status and named actions under /services/:service.
type Service interface {
	Name() string
	Status() (any, error)
	Actions() map[string]Action
}

// Action executes one service command.
type Action func() (string, error)

// Router delivers a frame to the protocol dispatcher.
type Router interface {
	Dispatch(t protocol.FrameType, payload []byte) protocol.Result
}

// ServiceRegistry stores services by name.
type ServiceRegistry struct {
	mu   sync.RWMutex
	repo map[string]Service
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{repo: make(map[string]Service)}
}

func (sr *ServiceRegistry) Register(s Service) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.repo[s.Name()] = s
}

func (sr *ServiceRegistry) Get(name string) (Service, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	s, ok := sr.repo[name]
	return s, ok
}

// ServiceInfo lists a service and its sorted action names.
type ServiceInfo struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

// List returns every service sorted by name.
func (sr *ServiceRegistry) List() []ServiceInfo {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	list := make([]ServiceInfo, 0, len(sr.repo))
	for name, svc := range sr.repo {
		actions := make([]string, 0, len(svc.Actions()))
		for action := range svc.Actions() {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		list = append(list, ServiceInfo{Name: name, Actions: actions})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func inject(router Router, t protocol.FrameType, payload []byte) (string, error) {
	if res := router.Dispatch(t, payload); res != protocol.Stay {
		return "", fmt.Errorf("%s frame cmd=0x%02x rejected", t, payload[0])
	}
	return "ok", nil
}

// ServoService reports the servo bank and drives output enable.
type ServoService struct {
	Bank   *sim.Bank
	Router Router
}

func (s *ServoService) Name() string { return "servos" }

// ServoView is one servo in GET /servos.
type ServoView struct {
	ID          uint8   `json:"id"`
	Moving      bool    `json:"moving"`
	CurrentPWM  uint32  `json:"current_pwm"`
	TargetAngle float32 `json:"target_angle"`
	RemainingMS uint32  `json:"remaining_ms"`
}

// ServoStatus is the body of GET /servos.
type ServoStatus struct {
	Enabled bool        `json:"enabled"`
	Servos  []ServoView `json:"servos"`
}

func (s *ServoService) Status() (any, error) {
	return s.status(), nil
}

func (s *ServoService) status() ServoStatus {
	snapshot := s.Bank.Snapshot()
	st := ServoStatus{Enabled: s.Bank.Enabled(), Servos: make([]ServoView, 0, len(snapshot))}
	for _, sv := range snapshot {
		st.Servos = append(st.Servos, ServoView{
			ID:          sv.ID,
			Moving:      sv.Moving,
			CurrentPWM:  sv.CurrentPWM,
			TargetAngle: sv.TargetAngle,
			RemainingMS: sv.RemainingMS,
		})
	}
	return st
}

func (s *ServoService) Actions() map[string]Action {
	return map[string]Action{
		"enable": func() (string, error) {
			return inject(s.Router, protocol.TypeServo, []byte{protocol.ServoEnable})
		},
		"disable": func() (string, error) {
			return inject(s.Router, protocol.TypeServo, []byte{protocol.ServoDisable})
		},
	}
}

// ArmService homes and stops the arm.
type ArmService struct {
	Bank   *sim.Bank
	Router Router
}

func (s *ArmService) Name() string { return "arm" }

func (s *ArmService) Status() (any, error) {
	return map[string]uint32{"moving_mask": s.Bank.MovingMask()}, nil
}

func (s *ArmService) Actions() map[string]Action {
	return map[string]Action{
		"home": func() (string, error) {
			return inject(s.Router, protocol.TypeArm, protocol.EncodeArmHome(protocol.DefaultHomeDuration))
		},
		"stop": func() (string, error) {
			return inject(s.Router, protocol.TypeArm, []byte{protocol.ArmStop})
		},
	}
}

// CycleService reports staged slots alongside the engine's live cycles.
type CycleService struct {
	Registry *protocol.Registry
	Engine   *sim.Cycles
}

// CycleStatus is the body of GET /cycles.
type CycleStatus struct {
	InUse  int                 `json:"in_use"`
	Slots  []protocol.SlotInfo `json:"slots"`
	Cycles []sim.CycleInfo     `json:"cycles"`
}

func (s *CycleService) Name() string { return "cycles" }

func (s *CycleService) Status() (any, error) {
	return s.status(), nil
}

func (s *CycleService) Actions() map[string]Action {
	return map[string]Action{}
}

func (s *CycleService) status() CycleStatus {
	st := CycleStatus{Slots: s.Registry.Snapshot()}
	st.InUse = s.Registry.InUse()
	if s.Engine != nil {
		st.Cycles = s.Engine.List()
	}
	return st
}
