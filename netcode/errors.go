package netcode

import "github.com/pkg/errors"

// Sentinel ingestion errors. Use errors.Cause (or errors.Is against
// these values after unwrapping) to recover the underlying kind from a
// wrapped error returned by Codec/Encoder/Decoder operations.
var (
	// ErrPacketType is returned when a packet's type byte is not one of
	// the three known values, or when it names a role the caller isn't
	// expecting (an encoder fed a source/repair, a decoder fed an ack).
	ErrPacketType = errors.New("netcode: unexpected packet type")

	// ErrOverflow is returned when an embedded length field would
	// require reading past the end of the input buffer.
	ErrOverflow = errors.New("netcode: packet overflows buffer")
)

// wrapf annotates a sentinel error with the operation that produced it,
// mirroring the errors.Wrap idiom used throughout the corpus this
// module is grounded on (e.g. client/main.go's "errors.Wrap(err,
// \"dial()\")").
func wrapf(cause error, format string, args ...any) error {
	return errors.Wrapf(cause, format, args...)
}
