package softbody

import (
	"errors"
	"fmt"
)

// Construction errors. These indicate a corrupt body definition and are
// never produced while stepping.
var (
	// ErrIndexOutOfRange indicates a link referencing a missing particle.
	ErrIndexOutOfRange = errors.New("softbody: particle index out of range")

	// ErrNegativeInvMass indicates a particle with inverse mass below zero.
	ErrNegativeInvMass = errors.New("softbody: negative inverse mass")

	// ErrNegativeRestLength indicates a distance link with a negative rest length.
	ErrNegativeRestLength = errors.New("softbody: negative rest length")

	// ErrLengthMismatch indicates parallel arrays of different lengths.
	ErrLengthMismatch = errors.New("softbody: particle and proxy counts differ")

	// ErrNoParticles indicates an empty body definition.
	ErrNoParticles = errors.New("softbody: body has no particles")

	// ErrNotInitialized indicates an operation on a body that was never initialized.
	ErrNotInitialized = errors.New("softbody: body not initialized")
)

// LinkError reports which link of a body definition is invalid.
type LinkError struct {
	Kind  string
	Index int
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s link %d: %v", e.Kind, e.Index, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
