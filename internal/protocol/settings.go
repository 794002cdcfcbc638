package protocol

// ConfigHandler answers the configuration family. Persistent configuration
// is not wired at this layer: SET, SAVE, LOAD and RESET are accepted and
// change nothing.
type ConfigHandler struct {
	state *StateSender
}

func NewConfigHandler(state *StateSender) *ConfigHandler {
	return &ConfigHandler{state: state}
}

func (h *ConfigHandler) Handle(cmd uint8, payload []byte) error {
	if err := Validate(TypeConfig, cmd, len(payload)); err != nil {
		return err
	}
	switch cmd {
	case ConfigGet:
		return h.state.Send(StateConfig, nil)
	case ConfigSet:
		return nil
	case ConfigSave:
		return nil
	case ConfigLoad:
		return nil
	case ConfigReset:
		return nil
	default:
		return ErrUnknownCommand
	}
}
