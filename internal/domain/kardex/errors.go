package kardex

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is returned when a payload does not carry a positive
// success flag from its upstream source. No transaction is opened.
var ErrInvalidPayload = errors.New("payload is not marked as successful")

// ErrDuplicateKey signals that a create hit a natural-key uniqueness
// constraint. Repositories translate their storage-specific errors into
// this sentinel so resolvers can recover by re-reading.
var ErrDuplicateKey = errors.New("duplicate natural key")

// MalformedCodeError reports a period code that is not exactly 4 digits
type MalformedCodeError struct {
	Code string
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("malformed period code %q: expected exactly 4 digits", e.Code)
}

// IsMalformedCode reports whether err is a MalformedCodeError
func IsMalformedCode(err error) bool {
	var mc *MalformedCodeError
	return errors.As(err, &mc)
}
