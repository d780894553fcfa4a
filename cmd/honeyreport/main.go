// honeyreport prints a summary of a honeyshell ledger: the most attempted
// credentials, the credentials learned recently and the latest session
// transcripts.
//
// Usage: honeyreport [-D PATH] [--top N] [--since DURATION] [--sessions N]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	sqliteadapter "github.com/ericfisherdev/honeyshell/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/honeyshell/internal/application"
	"github.com/ericfisherdev/honeyshell/internal/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, time.Now()); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath   string
	top      int
	since    time.Duration
	sessions int
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("honeyreport", pflag.ContinueOnError)
	fs.StringVarP(&opts.dbPath, "user-database", "D", config.DefaultDBPath, "ledger database file")
	fs.IntVar(&opts.top, "top", 20, "number of top credentials to show")
	fs.DurationVar(&opts.since, "since", config.DefaultCredentialTTL, "show credentials learned within this window")
	fs.IntVar(&opts.sessions, "sessions", 10, "number of recent session transcripts to show (0 disables)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.top <= 0 {
		return opts, fmt.Errorf("--top must be positive, got %d", opts.top)
	}
	if opts.since <= 0 {
		return opts, fmt.Errorf("--since must be positive, got %s", opts.since)
	}
	if opts.sessions < 0 {
		return opts, fmt.Errorf("--sessions must not be negative, got %d", opts.sessions)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer, now time.Time) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.OpenReadOnly(ctx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", opts.dbPath, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	reports := application.NewReportService(
		sqliteadapter.NewCredentialRepo(db),
		sqliteadapter.NewCommandRepo(db),
	)
	return writeReport(ctx, out, reports, opts, now.UTC())
}

func writeReport(ctx context.Context, out io.Writer, reports *application.ReportService, opts options, now time.Time) error {
	fmt.Fprintf(out, "SSH HONEYPOT REPORT  %s UTC\n", now.Format("2006-01-02 15:04"))

	usage, err := reports.TopCredentials(ctx, opts.top)
	if err != nil {
		return err
	}
	section(out, fmt.Sprintf("Top %d credentials", opts.top))
	tw := newTable(out)
	fmt.Fprintln(tw, "ATTEMPTS\tUSERNAME\tPASSWORD")
	for _, u := range usage {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.Count, quote(u.Username), quote(u.Password))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	learned, err := reports.LearnedCredentials(ctx, now.Add(-opts.since))
	if err != nil {
		return err
	}
	section(out, fmt.Sprintf("Credentials learned in the last %s", opts.since))
	tw = newTable(out)
	fmt.Fprintln(tw, "GRANTED\tUSERNAME\tPASSWORD")
	for _, c := range learned {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.CreatedAt.UTC().Format(time.DateTime), quote(c.Username), quote(c.Password))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.sessions == 0 {
		return nil
	}

	transcripts, err := reports.Transcripts(ctx, opts.sessions)
	if err != nil {
		return err
	}
	section(out, fmt.Sprintf("Last %d sessions", opts.sessions))
	for _, tr := range transcripts {
		s := tr.Summary
		fmt.Fprintf(out, "\n%s  user=%s  %s .. %s  (%d commands)\n",
			s.SessionID, quote(s.Username),
			s.FirstSeen.UTC().Format(time.DateTime), s.LastSeen.UTC().Format(time.DateTime),
			s.Commands)
		for _, c := range tr.Commands {
			marker := "$"
			if c.Single {
				marker = "exec"
			}
			fmt.Fprintf(out, "  %s %s %s\n", c.Timestamp.UTC().Format(time.TimeOnly), marker, quote(c.Command))
		}
	}
	return nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func section(out io.Writer, title string) {
	fmt.Fprintf(out, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// quote escapes control characters so attacker input cannot move the cursor
// or break table columns.
func quote(s string) string {
	q := fmt.Sprintf("%q", s)
	q = q[1 : len(q)-1]
	if q == "" {
		return `""`
	}
	return q
}
