package wire

import "errors"

// ErrMalformedFrame is returned when a datagram cannot be decoded against
// the schema, including a length-prefix mismatch.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// ErrUnknownRequestType is returned when a decoded envelope's type tag is
// outside the known RequestType set (or, from DecodeResponse, outside the
// known ResponseType set).
var ErrUnknownRequestType = errors.New("wire: unknown request type")
