package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/honeyshell/internal/application"
	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

func TestReportService_LimitIsClamped(t *testing.T) {
	commands := &fakeCommandStore{}
	svc := application.NewReportService(newFakeCredentialStore(time.Now), commands)
	ctx := context.Background()

	for _, limit := range []int{0, -3, 10, 5000} {
		_, err := svc.Sessions(ctx, limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{
		application.DefaultReportLimit,
		application.DefaultReportLimit,
		10,
		application.MaxReportLimit,
	}, commands.limits)
}

func TestReportService_Transcripts(t *testing.T) {
	commands := &fakeCommandStore{}
	svc := application.NewReportService(newFakeCredentialStore(time.Now), commands)
	ctx := context.Background()

	a, b := model.NewSessionID(), model.NewSessionID()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, e := range []model.CommandEntry{
		{Username: "root", SessionID: a, Command: "ls"},
		{Username: "root", SessionID: a, Command: "id"},
		{Username: "pi", SessionID: b, Command: "w"},
	} {
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, commands.Append(ctx, e))
	}

	transcripts, err := svc.Transcripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, transcripts, 2)
	assert.Equal(t, a, transcripts[0].Summary.SessionID)
	require.Len(t, transcripts[0].Commands, 2)
	assert.Equal(t, "id", transcripts[0].Commands[1].Command)
	assert.Equal(t, "pi", transcripts[1].Summary.Username)
}

func TestReportService_Credentials(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	creds := newFakeCredentialStore(func() time.Time { return now })
	svc := application.NewReportService(creds, &fakeCommandStore{})
	ctx := context.Background()

	require.NoError(t, creds.RecordAttempt(ctx, "root", "root"))
	require.NoError(t, creds.Grant(ctx, "root", "root"))

	usage, err := svc.TopCredentials(ctx, 0)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, int64(1), usage[0].Count)

	learned, err := svc.LearnedCredentials(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, learned, 1)

	learned, err = svc.LearnedCredentials(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, learned)
}
