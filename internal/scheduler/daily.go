package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Daily runs a job once a day at a fixed UTC wall-clock time.
type Daily struct {
	name   string
	hour   int
	minute int
	job    Job
	clock  clockwork.Clock
	logger *logrus.Logger
}

func NewDaily(name string, hour, minute int, job Job, clock clockwork.Clock, logger *logrus.Logger) *Daily {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Daily{name: name, hour: hour, minute: minute, job: job, clock: clock, logger: logger}
}

// NextRun returns the first scheduled time strictly after now.
func (d *Daily) NextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, invoking the job at each scheduled time.
// A started job is not interrupted by cancellation.
func (d *Daily) Run(ctx context.Context) {
	for {
		now := d.clock.Now()
		next := d.NextRun(now)
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"job": d.name, "next_run": next.Format(time.RFC3339)}).Info("job scheduled")
		}

		timer := d.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			if d.logger != nil {
				d.logger.WithField("job", d.name).Info("scheduler stopped")
			}
			return
		case <-timer.Chan():
		}

		if err := d.invoke(context.WithoutCancel(ctx)); err != nil && d.logger != nil {
			d.logger.WithError(err).WithField("job", d.name).Error("scheduled job failed")
		}
	}
}

func (d *Daily) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	start := d.clock.Now()
	err = d.job(ctx)
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"job": d.name, "took": d.clock.Since(start).String()}).Info("scheduled job finished")
	}
	return err
}
