package devserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler requests periodic full rebuilds, so content dated in the future
// appears once its date has passed without anyone touching a file.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that calls trigger per spec. spec is
// either a Go duration ("1h") or a five-field cron expression.
func NewScheduler(spec string, trigger func(), logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	def := gocron.CronJob(spec, false)
	if d, derr := time.ParseDuration(spec); derr == nil {
		def = gocron.DurationJob(d)
	}
	_, err = s.NewJob(def,
		gocron.NewTask(func() {
			logger.Info("Scheduled rebuild", slog.String("schedule", spec))
			trigger()
		}),
		gocron.WithName("scheduled-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled rebuild job: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting rebuild scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
