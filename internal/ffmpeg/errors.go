package ffmpeg

import "fmt"

// SpawnError means the encoder binary could not be found or launched at
// all. It is never retried.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot launch %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError means the encoder ran and exited non-zero. Stderr carries the
// tail of the process output for diagnostics. Callers may retry an
// ExitError with a different invocation; any other failure is fatal.
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg exited with error: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg exited with error: %v\n%s", e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }
