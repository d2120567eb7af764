package chrono

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a
// cron schedule should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
	Stop()
}

// StandardCron is the implementation of CronAPI using `github.com/robfig/cron/v3`.
// Jobs never overlap, a trigger that fires while the previous run of the
// same job is still going is skipped.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron() StandardCron {
	logger := cronLogger{}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	cronner.Start()
	return StandardCron{cron: cronner}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
