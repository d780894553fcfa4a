package application

import (
	"context"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
)

// Default and maximum row counts for report listings.
const (
	DefaultReportLimit = 50
	MaxReportLimit     = 1000
)

// SessionTranscript is a session summary with its commands in order.
type SessionTranscript struct {
	Summary  model.SessionSummary
	Commands []model.CommandEntry
}

// ReportService assembles read-only views of the ledger for the admin API and
// the offline report. It depends only on port interfaces.
type ReportService struct {
	credentials driven.CredentialStore
	commands    driven.CommandStore
}

// NewReportService creates a new ReportService with the required dependencies.
func NewReportService(credentials driven.CredentialStore, commands driven.CommandStore) *ReportService {
	return &ReportService{
		credentials: credentials,
		commands:    commands,
	}
}

// TopCredentials returns the most attempted pairs.
func (s *ReportService) TopCredentials(ctx context.Context, limit int) ([]model.CredentialUsage, error) {
	return s.credentials.TopUsage(ctx, clampLimit(limit))
}

// LearnedCredentials returns pairs granted at or after since.
func (s *ReportService) LearnedCredentials(ctx context.Context, since time.Time) ([]model.Credential, error) {
	return s.credentials.ListGranted(ctx, since)
}

// Sessions returns the most recent sessions.
func (s *ReportService) Sessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	return s.commands.ListSessions(ctx, clampLimit(limit))
}

// Commands returns the commands of one session in order.
func (s *ReportService) Commands(ctx context.Context, id model.SessionID) ([]model.CommandEntry, error) {
	return s.commands.ListBySession(ctx, id)
}

// Transcripts returns the most recent sessions together with their commands.
func (s *ReportService) Transcripts(ctx context.Context, limit int) ([]SessionTranscript, error) {
	sessions, err := s.Sessions(ctx, limit)
	if err != nil {
		return nil, err
	}

	transcripts := make([]SessionTranscript, 0, len(sessions))
	for _, summary := range sessions {
		cmds, err := s.commands.ListBySession(ctx, summary.SessionID)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, SessionTranscript{Summary: summary, Commands: cmds})
	}
	return transcripts, nil
}

// clampLimit maps non-positive limits to the default and caps large ones.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultReportLimit
	case limit > MaxReportLimit:
		return MaxReportLimit
	default:
		return limit
	}
}
