package tempmongo

import "errors"

// Error kinds. Every error returned by Start matches exactly one of these
// under errors.Is.
var (
	// ErrIO reports a filesystem failure creating or removing the working directory.
	ErrIO = errors.New("tempmongo: filesystem error")
	// ErrProcessSpawn reports a missing binary or a server that exited before becoming ready.
	ErrProcessSpawn = errors.New("tempmongo: failed to spawn server")
	// ErrReadinessTimeout reports a server that did not accept connections in time.
	ErrReadinessTimeout = errors.New("tempmongo: server did not become ready")
	// ErrClientInit reports a reachable endpoint that failed the driver handshake.
	ErrClientInit = errors.New("tempmongo: failed to initialize client")
)

// Error describes a failed step of starting or stopping an instance.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := "tempmongo: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}
