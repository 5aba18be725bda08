package runtime

import (
	"errors"

	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/world"
)

// ErrorCode maps runtime and game errors onto protocol error codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrMapNotFound):
		return protocol.ErrMapNotFound
	case errors.Is(err, world.ErrDogNotFound):
		return protocol.ErrDogNotFound
	case errors.Is(err, ErrManualTickDisabled):
		return protocol.ErrManualTick
	default:
		return protocol.ErrInternal
	}
}
