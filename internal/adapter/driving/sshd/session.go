package sshd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	gliderssh "github.com/gliderlabs/ssh"

	"github.com/ericfisherdev/honeyshell/internal/domain/port/driving"
)

// Compile-time interface satisfaction check.
var _ driving.Session = (*session)(nil)

type inputEvent struct {
	line string
	err  error
}

// session adapts a gliderlabs session to the driving.Session port. Input is
// read by a pump goroutine; window changes, INT signals and breaks are
// forwarded by a second goroutine so the transport request loop never blocks.
type session struct {
	gs          gliderssh.Session
	interactive bool
	stderr      io.Writer

	lines   chan inputEvent // closed by the pump at end of input
	control chan error
	done    chan struct{}
}

func newSession(gs gliderssh.Session) *session {
	_, winch, isPty := gs.Pty()

	s := &session{
		gs:          gs,
		interactive: isPty,
		stderr:      gs.Stderr(),
		lines:       make(chan inputEvent),
		control:     make(chan error),
		done:        make(chan struct{}),
	}
	if isPty {
		s.stderr = crlfWriter{w: gs.Stderr()}
		// The window announced with the pty request is not a resize.
		select {
		case <-winch:
		default:
		}
	}

	signals := make(chan gliderssh.Signal, 8)
	breaks := make(chan bool, 8)
	gs.Signals(signals)
	gs.Break(breaks)

	go s.pump()
	go s.forward(winch, signals, breaks)
	return s
}

// close stops the helper goroutines. It must be called once the session
// handler has returned.
func (s *session) close() {
	close(s.done)
	s.gs.Signals(nil)
	s.gs.Break(nil)
}

func (s *session) User() string       { return s.gs.User() }
func (s *session) RemoteAddr() string { return s.gs.RemoteAddr().String() }
func (s *session) Interactive() bool  { return s.interactive }

func (s *session) Command() (string, bool) {
	cmd := s.gs.RawCommand()
	return cmd, cmd != ""
}

func (s *session) ReadLine(ctx context.Context) (string, error) {
	select {
	case ev, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return ev.line, ev.err
	case err := <-s.control:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stdout writes to the channel; gliderlabs already maps \n to \r\n on a pty.
func (s *session) Stdout() io.Writer { return s.gs }
func (s *session) Stderr() io.Writer { return s.stderr }

func (s *session) Exit(code int) error {
	return s.gs.Exit(code)
}

func (s *session) emit(ev inputEvent) bool {
	select {
	case s.lines <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) pump() {
	defer close(s.lines)

	var (
		editor  lineEditor
		partial []byte
		buf     = make([]byte, 1024)
	)
	for {
		n, err := s.gs.Read(buf)
		for _, c := range buf[:n] {
			if !s.interactive {
				if c != '\n' {
					partial = append(partial, c)
					continue
				}
				line := string(partial)
				partial = partial[:0]
				if !s.emit(inputEvent{line: line}) {
					return
				}
				continue
			}

			echo, kind, line, complete := editor.step(c)
			if echo != "" {
				if _, werr := io.WriteString(s.gs, echo); werr != nil {
					s.emit(inputEvent{err: fmt.Errorf("echo: %w", werr)})
					return
				}
			}
			if !complete {
				continue
			}
			switch kind {
			case eventLine:
				if !s.emit(inputEvent{line: line}) {
					return
				}
			case eventInterrupt:
				if !s.emit(inputEvent{err: driving.ErrInterrupted}) {
					return
				}
			case eventEOF:
				return
			}
		}

		if err != nil {
			if s.interactive {
				partial = append(partial, editor.flush()...)
			}
			if len(partial) > 0 {
				if !s.emit(inputEvent{line: string(partial)}) {
					return
				}
			}
			if !errors.Is(err, io.EOF) {
				s.emit(inputEvent{err: fmt.Errorf("read: %w", err)})
			}
			return
		}
	}
}

func (s *session) forward(winch <-chan gliderssh.Window, signals <-chan gliderssh.Signal, breaks <-chan bool) {
	for {
		var ev error
		select {
		case _, ok := <-winch:
			if !ok {
				winch = nil
				continue
			}
			ev = driving.ErrWindowResized
		case sig := <-signals:
			if sig != gliderssh.SIGINT {
				continue
			}
			ev = driving.ErrInterrupted
		case <-breaks:
			ev = driving.ErrInterrupted
		case <-s.done:
			return
		}

		select {
		case s.control <- ev:
		case <-s.done:
			return
		}
	}
}

// crlfWriter maps \n to \r\n for output that bypasses the gliderlabs pty
// translation.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})
	out = bytes.ReplaceAll(out, []byte{'\r', '\r', '\n'}, []byte{'\r', '\n'})
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
