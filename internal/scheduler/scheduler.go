package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/config"
	"apartment-portal/internal/consistency"
	"apartment-portal/internal/models"
	"apartment-portal/internal/snapshot"
)

// Scheduler runs the consistency audit against the served snapshot on a daily schedule
type Scheduler struct {
	cron      *cron.Cron
	holder    *snapshot.Holder
	config    config.ConsistencyConfig
	isRunning bool

	mu         sync.Mutex
	lastReport *models.ConsistencyReport
	lastRunAt  time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(holder *snapshot.Holder, cfg config.ConsistencyConfig) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		holder: holder,
		config: cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.AuditEnabled {
		zap.L().Info("scheduler: consistency audit disabled in configuration")
		return nil
	}

	cronSpec := ParseDailyRunTime(s.config.AuditSchedule)

	_, err := s.cron.AddFunc(cronSpec, func() {
		if _, err := s.RunNow(); err != nil {
			zap.L().Error("scheduler: consistency audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return eris.Wrapf(err, "scheduler: add audit job %q", cronSpec)
	}

	s.cron.Start()
	s.isRunning = true
	zap.L().Info("scheduler: started",
		zap.String("audit_time", s.config.AuditSchedule),
		zap.String("cron", cronSpec),
	)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		zap.L().Info("scheduler: stopped")
	}
}

// RunNow audits the current snapshot immediately
func (s *Scheduler) RunNow() (*models.ConsistencyReport, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, eris.New("scheduler: no snapshot loaded")
	}

	report := snap.Consistency(s.config.ExampleLimit)
	consistency.Log(zap.L().Named("audit"), report)

	s.mu.Lock()
	s.lastReport = report
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	return report, nil
}

// LastReport returns the latest audit result, nil before the first run
func (s *Scheduler) LastReport() (*models.ConsistencyReport, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport, s.lastRunAt
}

// ParseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func ParseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 3:00 AM if parsing fails
	zap.L().Warn("scheduler: failed to parse audit time, using default 03:00", zap.String("value", timeStr))
	return "0 3 * * *"
}
