package main

import (
	"bytes"
	"encoding/json"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/honeyshell/internal/config"
)

func TestWatchSignals_SecondSignalForcesExit(t *testing.T) {
	sigs := make(chan os.Signal, 2)
	done := make(chan struct{})
	first := make(chan os.Signal, 1)
	second := make(chan os.Signal, 1)

	returned := make(chan struct{})
	go func() {
		watchSignals(sigs, done,
			func(s os.Signal) { first <- s },
			func(s os.Signal) { second <- s },
		)
		close(returned)
	}()

	sigs <- os.Interrupt
	assert.Equal(t, os.Interrupt, <-first)

	sigs <- syscall.SIGTERM
	assert.Equal(t, syscall.SIGTERM, <-second)

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("watchSignals did not return after the second signal")
	}
}

func TestWatchSignals_DoneBeforeSecondSignal(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	firstCalled := make(chan struct{})
	secondCalled := false

	returned := make(chan struct{})
	go func() {
		watchSignals(sigs, done,
			func(os.Signal) { close(firstCalled) },
			func(os.Signal) { secondCalled = true },
		)
		close(returned)
	}()

	sigs <- syscall.SIGTERM
	<-firstCalled
	close(done)

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("watchSignals did not return after done was closed")
	}
	assert.False(t, secondCalled)
}

func TestWatchSignals_DoneWithoutSignal(t *testing.T) {
	done := make(chan struct{})
	close(done)

	called := false
	watchSignals(make(chan os.Signal), done,
		func(os.Signal) { called = true },
		func(os.Signal) { called = true },
	)
	assert.False(t, called)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "user", "root")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "root", entry["user"])
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HONEYSHELL_BANNER_FILE", "")
	t.Setenv("HONEYSHELL_HOST_KEYS", "")
	t.Setenv("HONEYSHELL_CONFIG_FILE", "")

	err := run([]string{"-P", "2"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_Help(t *testing.T) {
	assert.NoError(t, run([]string{"--help"}))
}
