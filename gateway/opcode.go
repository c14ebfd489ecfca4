package gateway

import "fmt"

// Opcode identifies the purpose of a gateway frame.
type Opcode int

// Gateway opcodes. Dispatch, Reconnect, InvalidSession, Hello and
// HeartbeatACK are receive-only; Identify and Resume are send-only;
// Heartbeat flows both ways.
const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatACK   Opcode = 11
)

// String returns the opcode's protocol name.
func (o Opcode) String() string {
	switch o {
	case OpDispatch:
		return "DISPATCH"
	case OpHeartbeat:
		return "HEARTBEAT"
	case OpIdentify:
		return "IDENTIFY"
	case OpResume:
		return "RESUME"
	case OpReconnect:
		return "RECONNECT"
	case OpInvalidSession:
		return "INVALID_SESSION"
	case OpHello:
		return "HELLO"
	case OpHeartbeatACK:
		return "HEARTBEAT_ACK"
	default:
		return fmt.Sprintf("OPCODE_%d", int(o))
	}
}
