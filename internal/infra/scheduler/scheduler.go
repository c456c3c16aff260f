package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const rolloverTimeout = 5 * time.Minute

// DayRoller rebuilds every reminder schedule for a new day.
type DayRoller interface {
	RolloverDay(ctx context.Context) error
}

type NotificationScheduler struct {
	cronEngine      *cron.Cron
	roller          DayRoller
	logger          *logrus.Entry
	cronSpecDayRoll string
}

func NewNotificationScheduler(roller DayRoller, logger *logrus.Entry, cronSpecDayRollover string) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		roller:          roller,
		logger:          logger,
		cronSpecDayRoll: cronSpecDayRollover, // e.g., "1 0 * * *" (00:01 daily)
	}
}

func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecDayRoll, s.runRollover); err != nil {
		return fmt.Errorf("could not add day rollover cron job %q: %w", s.cronSpecDayRoll, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecDayRoll).Info("Notification scheduler started with jobs.")
	return nil
}

func (s *NotificationScheduler) runRollover() {
	s.logger.Info("Cron job triggered for day rollover.")
	ctx, cancel := context.WithTimeout(context.Background(), rolloverTimeout)
	defer cancel()

	if err := s.roller.RolloverDay(ctx); err != nil {
		s.logger.WithError(err).Error("Error during day rollover")
		return
	}
	s.logger.Info("Day rollover completed.")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
