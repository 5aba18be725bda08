package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrInvalidMethod   = "E_INVALID_METHOD"

	// Game routing/state.
	ErrMapNotFound = "E_MAP_NOT_FOUND"
	ErrDogNotFound = "E_DOG_NOT_FOUND"
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrManualTick  = "E_MANUAL_TICK_DISABLED"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrInvalidMethod:   {},
	ErrMapNotFound:     {},
	ErrDogNotFound:     {},
	ErrBadRequest:      {},
	ErrManualTick:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
