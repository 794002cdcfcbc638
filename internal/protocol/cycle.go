package protocol

import "github.com/rs/zerolog/log"

// CycleHandler decodes motion-cycle commands and keeps staged pose geometry
// in the slot registry.
type CycleHandler struct {
	engine   CycleEngine
	registry *Registry
	state    *StateSender
}

func NewCycleHandler(engine CycleEngine, registry *Registry, state *StateSender) *CycleHandler {
	if registry == nil {
		registry = NewRegistry()
	}
	return &CycleHandler{engine: engine, registry: registry, state: state}
}

func (h *CycleHandler) Registry() *Registry {
	return h.registry
}

func (h *CycleHandler) Handle(cmd uint8, payload []byte) error {
	n := len(payload)
	if err := Validate(TypeMotionCycle, cmd, n); err != nil {
		return err
	}
	switch cmd {
	case CycleCreate:
		idx, err := h.registry.Create(payload, h.engine)
		if err != nil {
			return err
		}
		log.Debug().Int("index", idx).Int("slots_in_use", h.registry.InUse()).Msg("cycle staged")
		reply := [1]byte{uint8(idx)}
		h.state.Announce(StateCycle, reply[:])
		return nil
	case CycleStart, CycleRestart, CyclePause:
		index, err := ReadU32(payload, 0, n)
		if err != nil {
			return err
		}
		switch cmd {
		case CycleStart:
			return actuate(h.engine.Start(index))
		case CycleRestart:
			return actuate(h.engine.Restart(index))
		default:
			return actuate(h.engine.Pause(index))
		}
	case CycleRelease:
		index, err := ReadU32(payload, 0, n)
		if err != nil {
			return err
		}
		if num, ok := h.registry.ReleaseIndex(index); ok {
			log.Debug().Uint32("index", index).Int("slot", num).Msg("cycle slot released")
		}
		return actuate(h.engine.Release(index))
	case CycleGetStatus, CycleStatus:
		return ErrNotImplemented
	default:
		return ErrUnknownCommand
	}
}
