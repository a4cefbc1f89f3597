package rtc

import "github.com/vmihailenco/msgpack/v5"

// ControlLabel is the label of the data channel the offerer opens for
// out-of-band peer metadata.
const ControlLabel = "control"

const TypeHello = "hello"

// Hello introduces a peer once the control channel opens.
type Hello struct {
	Username string `msgpack:"username"`
	Client   string `msgpack:"client"`
	Version  string `msgpack:"version"`
}

// ControlMessage frames every payload on the control channel.
type ControlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func (m ControlMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

func NewControlMessage(t string, payload any) (ControlMessage, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return ControlMessage{}, err
	}

	return ControlMessage{
		Type:    t,
		Payload: b,
	}, nil
}

// EncodeHello frames h for the wire.
func EncodeHello(h Hello) ([]byte, error) {
	msg, err := NewControlMessage(TypeHello, h)
	if err != nil {
		return nil, err
	}
	return encodeControl(msg)
}

func encodeControl(msg ControlMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

// DecodeControl parses one control channel frame.
func DecodeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
