package sshd

import (
	"strings"
	"unicode/utf8"
)

// Control bytes understood by the line editor.
const (
	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyBackspace = 0x08
	keyCtrlU     = 0x15
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

type escState int

const (
	escNone escState = iota
	// escStart follows an ESC byte.
	escStart
	// escSequence is inside a CSI or SS3 sequence, waiting for its final byte.
	escSequence
)

type eventKind int

const (
	eventLine eventKind = iota
	eventInterrupt
	eventEOF
)

// lineEditor turns raw terminal keystrokes into lines. It echoes what the
// client types the way a cooked-mode terminal would and swallows escape
// sequences such as cursor keys.
type lineEditor struct {
	buf    []byte
	esc    escState
	lastCR bool
}

// flush returns the unfinished line and clears it.
func (e *lineEditor) flush() string {
	line := string(e.buf)
	e.buf = e.buf[:0]
	return line
}

// step consumes one byte. It returns the bytes to echo and, when a line is
// complete or a control key ended the input, the resulting event.
func (e *lineEditor) step(c byte) (echo string, kind eventKind, line string, done bool) {
	afterCR := e.lastCR
	e.lastCR = false

	switch e.esc {
	case escStart:
		if c == '[' || c == 'O' {
			e.esc = escSequence
		} else {
			e.esc = escNone
		}
		return "", 0, "", false
	case escSequence:
		if c >= 0x40 && c <= 0x7e {
			e.esc = escNone
		}
		return "", 0, "", false
	}

	switch c {
	case '\r', '\n':
		if c == '\n' && afterCR {
			return "", 0, "", false
		}
		e.lastCR = c == '\r'
		line = string(e.buf)
		e.buf = e.buf[:0]
		return "\r\n", eventLine, line, true
	case keyCtrlC:
		e.buf = e.buf[:0]
		return "", eventInterrupt, "", true
	case keyCtrlD:
		if len(e.buf) == 0 {
			return "", eventEOF, "", true
		}
		return "", 0, "", false
	case keyBackspace, keyDelete:
		if len(e.buf) == 0 {
			return "", 0, "", false
		}
		_, size := utf8.DecodeLastRune(e.buf)
		e.buf = e.buf[:len(e.buf)-size]
		return "\b \b", 0, "", false
	case keyCtrlU:
		n := utf8.RuneCount(e.buf)
		e.buf = e.buf[:0]
		return strings.Repeat("\b \b", n), 0, "", false
	case keyEscape:
		e.esc = escStart
		return "", 0, "", false
	}

	if c < 0x20 {
		return "", 0, "", false
	}
	e.buf = append(e.buf, c)
	return string([]byte{c}), 0, "", false
}
