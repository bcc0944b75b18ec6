package gnupg

import (
	"errors"
	"fmt"
)

var errVersionNotFound = errors.New("version not found in output")

// A LaunchError indicates that the gpg binary is missing, not executable, or
// otherwise unusable. It is fatal and never retried.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: cannot launch: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// An UnsafeInputError indicates that an externally supplied token contains
// shell metacharacters or control characters and was rejected before it
// could reach an argument list.
type UnsafeInputError struct {
	Token string
}

func (e *UnsafeInputError) Error() string {
	return fmt.Sprintf("unsafe input: %q", e.Token)
}
