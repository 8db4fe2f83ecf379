package authinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/keygate/pkg/iam/authcode"
	"github.com/Abraxas-365/keygate/pkg/iam/session"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/robfig/cron/v3"
)

// CleanupService borra periódicamente las sesiones cuyo refresh token expiró
// y los códigos de autorización vencidos
type CleanupService struct {
	sessions session.Repository
	codes    authcode.Repository

	refreshTTL  time.Duration
	authCodeTTL time.Duration

	sessionEvery  time.Duration
	authCodeEvery time.Duration

	metrics *observability.Metrics
	now     func() time.Time
}

// CleanupConfig carries the lifetimes that define expiry and the sweep intervals.
type CleanupConfig struct {
	RefreshTTL    time.Duration
	AuthCodeTTL   time.Duration
	SessionEvery  time.Duration
	AuthCodeEvery time.Duration
}

func NewCleanupService(sessions session.Repository, codes authcode.Repository, cfg CleanupConfig, metrics *observability.Metrics) *CleanupService {
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &CleanupService{
		sessions:      sessions,
		codes:         codes,
		refreshTTL:    cfg.RefreshTTL,
		authCodeTTL:   cfg.AuthCodeTTL,
		sessionEvery:  cfg.SessionEvery,
		authCodeEvery: cfg.AuthCodeEvery,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. For tests.
func (s *CleanupService) WithClock(now func() time.Time) *CleanupService {
	s.now = now
	return s
}

// Start schedules both sweeps and blocks until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	c := cron.New()

	if _, err := c.AddFunc(every(s.sessionEvery), func() { _, _ = s.SweepSessions(ctx) }); err != nil {
		logx.WithError(err).Error("Failed to schedule session sweep")
		return
	}
	if _, err := c.AddFunc(every(s.authCodeEvery), func() { _, _ = s.SweepAuthCodes(ctx) }); err != nil {
		logx.WithError(err).Error("Failed to schedule authorization code sweep")
		return
	}

	c.Start()
	logx.WithFields(logx.Fields{
		"session_every":   s.sessionEvery,
		"auth_code_every": s.authCodeEvery,
	}).Info("Cleanup service started")

	<-ctx.Done()

	// wait for running sweeps
	<-c.Stop().Done()
	logx.Info("Cleanup service stopped")
}

// SweepSessions deletes every session whose refresh token is expired now.
func (s *CleanupService) SweepSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteRefreshExpired(ctx, s.now().Add(-s.refreshTTL))
	return n, s.record(observability.TargetSessions, n, err)
}

// SweepAuthCodes deletes every expired authorization code.
func (s *CleanupService) SweepAuthCodes(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now().Add(-s.authCodeTTL))
	return n, s.record(observability.TargetAuthCodes, n, err)
}

func (s *CleanupService) record(target string, n int64, err error) error {
	if err != nil {
		s.metrics.ReaperErrorsTotal.WithLabelValues(target).Inc()
		logx.WithError(err).WithField("target", target).Error("Expiry sweep failed")
		return err
	}

	s.metrics.ReaperDeletedTotal.WithLabelValues(target).Add(float64(n))
	if n > 0 {
		logx.WithFields(logx.Fields{
			"target":  target,
			"deleted": n,
		}).Debug("Expiry sweep")
	}
	return nil
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
