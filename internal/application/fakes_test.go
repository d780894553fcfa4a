package application_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
)

// --- Fake credential store ---

type pair struct {
	user, pass string
}

type fakeCredentialStore struct {
	mu        sync.Mutex
	usage     map[pair]int64
	granted   map[pair]time.Time
	now       func() time.Time
	recordErr error
	lookupErr error
	grantErr  error
	grants    int
}

func newFakeCredentialStore(now func() time.Time) *fakeCredentialStore {
	return &fakeCredentialStore{
		usage:   make(map[pair]int64),
		granted: make(map[pair]time.Time),
		now:     now,
	}
}

func (f *fakeCredentialStore) RecordAttempt(_ context.Context, user, pass string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.usage[pair{user, pass}]++
	return nil
}

func (f *fakeCredentialStore) Lookup(_ context.Context, user, pass string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return time.Time{}, false, f.lookupErr
	}
	ts, ok := f.granted[pair{user, pass}]
	return ts, ok, nil
}

func (f *fakeCredentialStore) Grant(_ context.Context, user, pass string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted[pair{user, pass}] = f.now()
	f.grants++
	return nil
}

func (f *fakeCredentialStore) TopUsage(_ context.Context, limit int) ([]model.CredentialUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CredentialUsage
	for p, n := range f.usage {
		if len(out) == limit {
			break
		}
		out = append(out, model.CredentialUsage{Username: p.user, Password: p.pass, Count: n})
	}
	return out, nil
}

func (f *fakeCredentialStore) ListGranted(_ context.Context, since time.Time) ([]model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Credential
	for p, ts := range f.granted {
		if !ts.Before(since) {
			out = append(out, model.Credential{Username: p.user, Password: p.pass, CreatedAt: ts})
		}
	}
	return out, nil
}

func (f *fakeCredentialStore) count(user, pass string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[pair{user, pass}]
}

// --- Fake command store ---

type fakeCommandStore struct {
	mu        sync.Mutex
	entries   []model.CommandEntry
	appendErr error
	limits    []int
}

func (f *fakeCommandStore) Append(_ context.Context, entry model.CommandEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeCommandStore) ListBySession(_ context.Context, id model.SessionID) ([]model.CommandEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CommandEntry
	for _, e := range f.entries {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCommandStore) ListSessions(_ context.Context, limit int) ([]model.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	index := make(map[model.SessionID]int)
	var out []model.SessionSummary
	for _, e := range f.entries {
		i, ok := index[e.SessionID]
		if !ok {
			if len(out) == limit {
				continue
			}
			index[e.SessionID] = len(out)
			out = append(out, model.SessionSummary{SessionID: e.SessionID, Username: e.Username, FirstSeen: e.Timestamp})
			i = len(out) - 1
		}
		out[i].LastSeen = e.Timestamp
		out[i].Commands++
	}
	return out, nil
}

func (f *fakeCommandStore) snapshot() []model.CommandEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CommandEntry(nil), f.entries...)
}

var (
	_ driven.CredentialStore = (*fakeCredentialStore)(nil)
	_ driven.CommandStore    = (*fakeCommandStore)(nil)
)

// --- Fake session ---

type readResult struct {
	line string
	err  error
}

type fakeSession struct {
	user        string
	interactive bool
	command     *string
	reads       []readResult
	// block makes ReadLine wait for cancellation once reads are exhausted.
	block  bool
	stdout bytes.Buffer
	stderr bytes.Buffer
	// failWrites makes both output channels fail.
	failWrites bool
	exitCodes  []int
}

func (s *fakeSession) User() string       { return s.user }
func (s *fakeSession) RemoteAddr() string { return "198.51.100.7:40022" }
func (s *fakeSession) Interactive() bool  { return s.interactive }

func (s *fakeSession) Command() (string, bool) {
	if s.command == nil {
		return "", false
	}
	return *s.command, true
}

func (s *fakeSession) ReadLine(ctx context.Context) (string, error) {
	if len(s.reads) == 0 {
		if s.block {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "", io.EOF
	}
	r := s.reads[0]
	s.reads = s.reads[1:]
	return r.line, r.err
}

func (s *fakeSession) Stdout() io.Writer { return s.writer(&s.stdout) }
func (s *fakeSession) Stderr() io.Writer { return s.writer(&s.stderr) }

func (s *fakeSession) writer(buf *bytes.Buffer) io.Writer {
	if s.failWrites {
		return failingWriter{}
	}
	return buf
}

func (s *fakeSession) Exit(code int) error {
	s.exitCodes = append(s.exitCodes, code)
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func lines(ls ...string) []readResult {
	out := make([]readResult, len(ls))
	for i, l := range ls {
		out[i] = readResult{line: l}
	}
	return out
}

func ptr(s string) *string { return &s }
