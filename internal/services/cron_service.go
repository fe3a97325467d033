package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tokenCleanupSchedule runs at the top of every hour
const tokenCleanupSchedule = "0 0 * * * *"

// jobTimeout bounds a single run of a scheduled job
const jobTimeout = 5 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron         *cron.Cron
	cleanup      *UserCleanupService
	userSchedule string
	logger       *logrus.Logger
}

// NewCronService creates a new CronService. userSchedule is a six-field
// cron spec (with seconds) for the withdrawn-user purge.
func NewCronService(cleanup *UserCleanupService, userSchedule string, logger *logrus.Logger) *CronService {
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:         c,
		cleanup:      cleanup,
		userSchedule: userSchedule,
		logger:       logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.userSchedule, s.purgeUsersJob); err != nil {
		return fmt.Errorf("failed to schedule user purge job: %w", err)
	}
	if _, err := s.cron.AddFunc(tokenCleanupSchedule, s.cleanupTokensJob); err != nil {
		return fmt.Errorf("failed to schedule token cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"user_purge":    s.userSchedule,
		"token_cleanup": tokenCleanupSchedule,
	}).Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// purgeUsersJob removes withdrawn accounts past their grace period
func (s *CronService) purgeUsersJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	purged, err := s.cleanup.PurgeExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] User purge failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"duration": time.Since(start).String(),
	}).Info("[CRON] User purge finished")
}

// cleanupTokensJob prunes expired and long-revoked refresh tokens
func (s *CronService) cleanupTokensJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.cleanup.CleanupTokens(ctx); err != nil {
		s.logger.WithError(err).Error("[CRON] Token cleanup failed")
	}
}

// RunUserPurgeNow runs the user purge job immediately
func (s *CronService) RunUserPurgeNow() {
	s.logger.Info("[MANUAL] Running user purge now")
	s.purgeUsersJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
