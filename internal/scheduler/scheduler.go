package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job names accepted by RunNow.
const (
	JobAutoPayout  = "auto_payout"
	JobDueReminder = "due_reminder"
)

// JobFunc runs one pass of a background job and reports how many items it
// handled.
type JobFunc func(ctx context.Context) (int, error)

type job struct {
	name string
	spec string
	run  JobFunc
	id   cron.EntryID
}

// Scheduler runs the periodic jobs of the API on a seconds-precision
// cron.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []*job
	log     *logrus.Logger
	timeout time.Duration
}

func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		timeout: 5 * time.Minute,
	}
}

// Add registers a job under a cron spec ("sec min hour dom month dow").
// It must be called before Start.
func (s *Scheduler) Add(name, spec string, run JobFunc) error {
	j := &job{name: name, spec: spec, run: run}
	id, err := s.cron.AddFunc(spec, func() { s.execute(j, "cron") })
	if err != nil {
		return fmt.Errorf("schedule %s job: %w", name, err)
	}
	j.id = id
	s.jobs = append(s.jobs, j)
	s.log.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) execute(j *job, trigger string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	n, err := j.run(ctx)
	entry := s.log.WithFields(logrus.Fields{
		"job":      j.name,
		"trigger":  trigger,
		"handled":  n,
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return n, err
	}
	entry.Info("job finished")
	return n, nil
}

// ErrUnknownJob is returned by RunNow for an unregistered name.
var ErrUnknownJob = errors.New("unknown job")

// RunNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) (int, error) {
	for _, j := range s.jobs {
		if j.name == name {
			return s.execute(j, "manual")
		}
	}
	return 0, ErrUnknownJob
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run"`
}

func (s *Scheduler) Status() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := s.cron.Entry(j.id)
		out = append(out, JobStatus{Name: j.name, Spec: j.spec, NextRun: e.Next, PrevRun: e.Prev})
	}
	return out
}
