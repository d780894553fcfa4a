package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"


	"github.com/ericfisherdev/honeyshell/internal/banner"
	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driving"
	"github.com/ericfisherdev/honeyshell/internal/metrics"
)

// ErrTransport marks a read or write failure on the session channel.
var ErrTransport = errors.New("session transport failure")

// DefaultHostname is shown in the prompt when none is configured.
const DefaultHostname = "localhost"

const motd = `Linux mx 4.19.0-0.bpo.2-amd64 #1 SMP Debian 4.19.16-1~bpo9+1 (2019-02-07) x86_64

The programs included with the Debian GNU/Linux system are free software;
the exact distribution terms for each program are described in the
individual files in /usr/share/doc/*/copyright.

Debian GNU/Linux comes with ABSOLUTELY NO WARRANTY, to the extent
permitted by applicable law.
`

// ShellService runs the fake shell of an authenticated session. Every line
// the client sends is written to the command ledger before it is interpreted.
type ShellService struct {
	commands driven.CommandStore
	banner   *banner.Template
	hostname string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ShellOption customises a ShellService.
type ShellOption func(*ShellService)

// WithShellClock replaces the clock used for timestamps and the date builtins.
func WithShellClock(now func() time.Time) ShellOption {
	return func(s *ShellService) { s.now = now }
}

// WithShellMetrics attaches metrics.
func WithShellMetrics(m *metrics.Metrics) ShellOption {
	return func(s *ShellService) { s.metrics = m }
}

// WithHostname sets the host name shown in the prompt.
func WithHostname(hostname string) ShellOption {
	return func(s *ShellService) { s.hostname = hostname }
}

// NewShellService creates a ShellService that logs to commands and answers
// unknown commands with tmpl.
func NewShellService(commands driven.CommandStore, tmpl *banner.Template, logger *slog.Logger, opts ...ShellOption) *ShellService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ShellService{
		commands: commands,
		banner:   tmpl,
		hostname: DefaultHostname,
		logger:   logger.With("component", "shell"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shellRun is the state of one Run call.
type shellRun struct {
	*ShellService
	id     model.SessionID
	sess   driving.Session
	user   string
	prompt string
	logger *slog.Logger
	err    error // first transport failure
}

// Run drives sess until the client leaves, types exit, or ctx is cancelled.
// The session is closed with exit status 0 unless ctx was cancelled, in which
// case ctx.Err() is returned and the connection is left to the caller.
func (s *ShellService) Run(ctx context.Context, id model.SessionID, sess driving.Session) error {
	r := &shellRun{
		ShellService: s,
		id:           id,
		sess:         sess,
		user:         sess.User(),
		logger:       s.logger.With("session", id.String(), "user", sess.User()),
	}
	if sess.Interactive() {
		r.prompt = s.prompt(r.user)
	}

	if cmd, ok := sess.Command(); ok {
		s.metrics.SessionStarted("exec")
		r.logger.Warn("user login", "remote_addr", sess.RemoteAddr(), "mode", "exec")
		r.dispatch(ctx, cmd, true)
	} else {
		s.metrics.SessionStarted("shell")
		r.logger.Warn("user login", "remote_addr", sess.RemoteAddr(), "mode", "shell")
		r.loop(ctx)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := sess.Exit(0); err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: exit: %w", ErrTransport, err)
	}
	if r.err != nil {
		r.logger.Error("session ended on transport failure", "error", r.err)
	}
	return r.err
}

func (s *ShellService) prompt(user string) string {
	mark := "$"
	if user == "root" {
		mark = "#"
	}
	return fmt.Sprintf("%s@%s:~%s ", user, s.hostname, mark)
}

func (r *shellRun) loop(ctx context.Context) {
	if r.sess.Interactive() {
		r.write(r.sess.Stderr(), motd)
	}
	r.write(r.sess.Stderr(), r.prompt)

	for r.err == nil {
		line, err := r.sess.ReadLine(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case errors.Is(err, driving.ErrWindowResized):
			continue
		case errors.Is(err, driving.ErrInterrupted):
			if !r.sess.Interactive() {
				return
			}
			r.write(r.sess.Stderr(), "^C\n")
			r.write(r.sess.Stderr(), r.prompt)
			continue
		case errors.Is(err, io.EOF):
			r.write(r.sess.Stderr(), "\n")
			return
		default:
			r.err = fmt.Errorf("%w: read: %w", ErrTransport, err)
			return
		}

		if line == "" {
			r.write(r.sess.Stderr(), r.prompt)
			continue
		}
		if exit := r.dispatch(ctx, line, false); exit {
			return
		}
		r.write(r.sess.Stderr(), r.prompt)
	}
}

// dispatch logs and interprets one command line. It reports whether the
// session should end.
func (r *shellRun) dispatch(ctx context.Context, cmdline string, single bool) bool {
	entry := model.CommandEntry{
		Username:  r.user,
		SessionID: r.id,
		Timestamp: r.now(),
		Command:   cmdline,
		Single:    single,
	}
	if err := r.commands.Append(ctx, entry); err != nil {
		r.metrics.CommandLogFailed()
		r.logger.Error("command log failed", "error", err)
	}
	r.logger.Info("command", "command", cmdline, "single", single)

	words, err := splitCommand(cmdline)
	if err != nil {
		r.metrics.CommandDispatched(metrics.KindSyntaxError)
		r.write(r.sess.Stderr(), fmt.Sprintf("bash: syntax error near unexpected token `%s'\n", cmdline))
		return false
	}
	if len(words) == 0 {
		r.metrics.CommandDispatched(metrics.KindEmpty)
		return false
	}

	b, ok := builtins[words[0]]
	if !ok {
		r.metrics.CommandDispatched(metrics.KindUnknown)
		r.write(r.sess.Stderr(), r.banner.Render(map[string]string{
			"username": r.user,
			"cmdline":  cmdline,
		}))
		return false
	}

	r.metrics.CommandDispatched(metrics.KindBuiltin)
	return b(r)
}

// write sends s to w unless an earlier write already failed.
func (r *shellRun) write(w io.Writer, s string) {
	if r.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(w, s); err != nil {
		r.err = fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
}
