package lsb

import (
	"errors"
	"fmt"
)

// CapacityError reports a framed payload that needs more samples than the
// buffer has. Nothing is written when it is returned.
type CapacityError struct {
	Need int // payload bits plus the EOF sentinel
	Have int // samples in the buffer
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("lsb: watermark needs %d samples but the image has %d", e.Need, e.Have)
}

// IsCapacity reports whether err is (or wraps) a *CapacityError.
func IsCapacity(err error) bool {
	var e *CapacityError
	return errors.As(err, &e)
}
