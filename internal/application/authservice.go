// Package application contains use-case orchestration services.
package application

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
	"github.com/ericfisherdev/honeyshell/internal/metrics"
)

// Rand is a source of uniform draws in [0, 1).
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG generator seeded from the operating system.
func NewRand() *rand.Rand {
	var seed [16]byte
	_, _ = crand.Read(seed[:]) // never fails on supported platforms
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// AuthConfig holds the credential learning policy.
type AuthConfig struct {
	// LoginProbability is the chance that an unknown or expired pair is accepted.
	LoginProbability float64
	// CredentialTTL is how long an accepted pair keeps being accepted.
	CredentialTTL time.Duration
	// AcceptPublicKeys is returned for every public key attempt.
	AcceptPublicKeys bool
}

// AuthService decides login attempts. An accepted pair is remembered for
// CredentialTTL so that a returning attacker finds the same password still
// working; every other attempt is a fresh draw against LoginProbability.
type AuthService struct {
	store   driven.CredentialStore
	cfg     AuthConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu  sync.Mutex
	rnd Rand
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithRand replaces the random source.
func WithRand(r Rand) AuthOption {
	return func(s *AuthService) { s.rnd = r }
}

// WithAuthClock replaces the clock used for the TTL check.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithAuthMetrics attaches metrics.
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// NewAuthService creates an AuthService over the given credential store.
func NewAuthService(store driven.CredentialStore, cfg AuthConfig, logger *slog.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "auth"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = NewRand()
	}
	return s
}

// Validate records the attempt and reports whether the password login succeeds.
// Any ledger failure rejects the attempt.
func (s *AuthService) Validate(ctx context.Context, username, password string) bool {
	accepted := s.validate(ctx, username, password)
	s.metrics.AuthAttempt("password", accepted)
	s.logger.Info("password attempt", "user", username, "accepted", accepted)
	return accepted
}

func (s *AuthService) validate(ctx context.Context, username, password string) bool {
	if err := s.store.RecordAttempt(ctx, username, password); err != nil {
		s.logger.Error("failed to record attempt", "user", username, "error", err)
		return false
	}

	createdAt, found, err := s.store.Lookup(ctx, username, password)
	if err != nil {
		s.logger.Error("failed to look up credential", "user", username, "error", err)
		return false
	}
	if found {
		cred := model.Credential{Username: username, Password: password, CreatedAt: createdAt}
		if cred.IsFresh(s.now(), s.cfg.CredentialTTL) {
			return true
		}
	}

	if s.draw() >= s.cfg.LoginProbability {
		return false
	}

	if err := s.store.Grant(ctx, username, password); err != nil {
		s.logger.Error("failed to grant credential", "user", username, "error", err)
		return false
	}
	return true
}

// ValidatePublicKey logs a public key attempt and applies the configured policy.
func (s *AuthService) ValidatePublicKey(_ context.Context, username, fingerprint string) bool {
	accepted := s.cfg.AcceptPublicKeys
	s.metrics.AuthAttempt("publickey", accepted)
	s.logger.Warn("public key attempt", "user", username, "fingerprint", fingerprint, "accepted", accepted)
	return accepted
}

func (s *AuthService) draw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}
