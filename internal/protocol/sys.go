package protocol

// SystemHandler answers liveness and identity requests.
type SystemHandler struct {
	tr   Transport
	name string
}

func NewSystemHandler(tr Transport, deviceName string) *SystemHandler {
	if deviceName == "" {
		deviceName = DefaultDeviceName
	}
	return &SystemHandler{tr: tr, name: deviceName}
}

func (h *SystemHandler) Handle(cmd uint8, payload []byte) error {
	if err := Validate(TypeSys, cmd, len(payload)); err != nil {
		return err
	}
	switch cmd {
	case SysPing:
		if len(payload) > MaxPayload {
			return ErrPayloadTooLarge
		}
		var buf [1 + MaxPayload]byte
		buf[0] = SysPong
		n := 1 + copy(buf[1:], payload)
		return send(h.tr, TypeSys, buf[:n])
	case SysPong, SysHeartbeat, SysInfo:
		// Host acknowledgements.
		return nil
	case SysGetInfo:
		return h.sendInfo()
	case SysReset:
		// No platform reset is wired at this layer.
		return nil
	default:
		return ErrUnknownCommand
	}
}

// sendInfo replies [INFO, major, minor, name_len, name...].
func (h *SystemHandler) sendInfo() error {
	name := h.name
	if len(name) > MaxPayload-3 {
		name = name[:MaxPayload-3]
	}
	var buf [1 + 3 + MaxPayload]byte
	buf[0] = SysInfo
	buf[1] = VersionMajor
	buf[2] = VersionMinor
	buf[3] = uint8(len(name))
	n := 4 + copy(buf[4:], name)
	return send(h.tr, TypeSys, buf[:n])
}
