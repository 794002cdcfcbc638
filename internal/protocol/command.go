package protocol

// CommandView is a borrowed projection of a frame payload: the first byte is
// the family sub-command, the rest are its parameters.
type CommandView struct {
	Cmd     uint8
	Payload []byte
}

// ParseCommand splits data into a CommandView. Payload aliases data.
func ParseCommand(data []byte) (CommandView, error) {
	if len(data) == 0 {
		return CommandView{}, ErrEmptyPayload
	}
	return CommandView{Cmd: data[0], Payload: data[1:]}, nil
}
