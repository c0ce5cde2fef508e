package detections

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput is matched by every error caused by an engine result the
// pipeline cannot interpret.
var ErrMalformedOutput = errors.New("malformed inference output")

// ShapeError describes an engine result that does not have the [1,1,N,7] layout.
type ShapeError struct {
	Shape   []int
	DataLen int
	Reason  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: %s (shape %v, %d values)", ErrMalformedOutput, e.Reason, e.Shape, e.DataLen)
}

func (e *ShapeError) Unwrap() error {
	return ErrMalformedOutput
}

type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
