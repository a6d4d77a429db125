package export

import "fmt"

// AssemblyError means concatenation of fully rendered intermediates failed.
// It can only occur after every segment succeeded individually, so it
// points at an inconsistency between expected and actual intermediates.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling final output failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
