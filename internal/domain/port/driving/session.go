// Package driving defines the ports through which inbound transports drive the
// application.
package driving

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrWindowResized is returned by ReadLine when the client reported a new
	// terminal size. No input was consumed.
	ErrWindowResized = errors.New("terminal window resized")

	// ErrInterrupted is returned by ReadLine when the client sent an interrupt
	// (Ctrl-C on a terminal, a signal or a break request). Any partially typed
	// line is discarded.
	ErrInterrupted = errors.New("interrupted by client")
)

// Session is one authenticated connection as seen by the shell engine.
type Session interface {
	// User returns the authenticated username.
	User() string

	// RemoteAddr returns the client address for logging.
	RemoteAddr() string

	// Interactive reports whether the client requested a terminal.
	Interactive() bool

	// Command returns the command supplied with an exec request, if any.
	Command() (string, bool)

	// ReadLine blocks until a full line is available and returns it without
	// the trailing newline. At end of input it returns io.EOF. It returns
	// ErrWindowResized or ErrInterrupted for the corresponding client events.
	ReadLine(ctx context.Context) (string, error)

	// Stdout is the primary output channel.
	Stdout() io.Writer

	// Stderr is the diagnostic output channel.
	Stderr() io.Writer

	// Exit reports the exit status to the client and ends the session.
	Exit(code int) error
}
