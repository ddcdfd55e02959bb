package session

import "errors"

var (
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrAlreadyStarted = errors.New("session already started")
	ErrNoTransport    = errors.New("session has no transport")

	// ErrChannelOpen matches any ChannelOpenError.
	ErrChannelOpen = errors.New("channel open failed")
	// ErrTransport matches any TransportError.
	ErrTransport = errors.New("transport failed")
)

// ChannelOpenError means the channel never reached the open state.
type ChannelOpenError struct {
	Err error
}

func (e *ChannelOpenError) Error() string {
	return "channel open failed: " + e.Err.Error()
}

func (e *ChannelOpenError) Unwrap() error { return e.Err }

// Is matches ErrChannelOpen.
func (e *ChannelOpenError) Is(target error) bool { return target == ErrChannelOpen }

// TransportError means an open channel failed before the remote side closed it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
