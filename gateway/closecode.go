package gateway

import "fmt"

// CloseCode is a gateway-specific WebSocket close code.
type CloseCode int

// Gateway close codes.
const (
	CloseUnknownError         CloseCode = 4000
	CloseUnknownOpcode        CloseCode = 4001
	CloseDecodeError          CloseCode = 4002
	CloseNotAuthenticated     CloseCode = 4003
	CloseAuthenticationFailed CloseCode = 4004
	CloseAlreadyAuthenticated CloseCode = 4005
	CloseInvalidSeq           CloseCode = 4007
	CloseRateLimited          CloseCode = 4008
	CloseSessionTimeout       CloseCode = 4009
	CloseInvalidShard         CloseCode = 4010
	CloseShardingRequired     CloseCode = 4011
	CloseInvalidAPIVersion    CloseCode = 4012
	CloseInvalidIntents       CloseCode = 4013
	CloseDisallowedIntents    CloseCode = 4014
)

// IsFatal reports whether the close code signals a condition reconnecting
// cannot fix (bad credential, bad shard topology, bad intents). A shard
// closed with one of these stops instead of retrying.
func (c CloseCode) IsFatal() bool {
	switch c {
	case CloseAuthenticationFailed,
		CloseInvalidShard,
		CloseShardingRequired,
		CloseInvalidAPIVersion,
		CloseInvalidIntents,
		CloseDisallowedIntents:
		return true
	}
	return false
}

// DestroysSession reports whether the close code invalidates the session.
// The shard reconnects with a fresh IDENTIFY instead of a RESUME.
func (c CloseCode) DestroysSession() bool {
	return c == CloseInvalidSeq || c == CloseSessionTimeout
}

// String returns the close code's protocol name.
func (c CloseCode) String() string {
	switch c {
	case CloseUnknownError:
		return "UNKNOWN_ERROR"
	case CloseUnknownOpcode:
		return "UNKNOWN_OPCODE"
	case CloseDecodeError:
		return "DECODE_ERROR"
	case CloseNotAuthenticated:
		return "NOT_AUTHENTICATED"
	case CloseAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case CloseAlreadyAuthenticated:
		return "ALREADY_AUTHENTICATED"
	case CloseInvalidSeq:
		return "INVALID_SEQ"
	case CloseRateLimited:
		return "RATE_LIMITED"
	case CloseSessionTimeout:
		return "SESSION_TIMEOUT"
	case CloseInvalidShard:
		return "INVALID_SHARD"
	case CloseShardingRequired:
		return "SHARDING_REQUIRED"
	case CloseInvalidAPIVersion:
		return "INVALID_API_VERSION"
	case CloseInvalidIntents:
		return "INVALID_INTENTS"
	case CloseDisallowedIntents:
		return "DISALLOWED_INTENTS"
	default:
		return fmt.Sprintf("CLOSE_%d", int(c))
	}
}
