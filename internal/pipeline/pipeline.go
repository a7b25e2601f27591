// Package pipeline runs one refresh of the city dataset: back up, enrich every
// record, recompute derived fields, save and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-stats-service/internal/backup"
	"github.com/couchcryptid/city-stats-service/internal/dataset"
	"github.com/couchcryptid/city-stats-service/internal/domain"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// Enricher refreshes one field of a single record.
type Enricher interface {
	Field() string
	Enrich(ctx context.Context, c domain.City) (domain.City, domain.Outcome)
}

// Rotator backs up the dataset before it is modified.
type Rotator interface {
	Rotate(src string) (backup.Result, error)
}

// Publisher pushes the saved dataset to version control.
type Publisher interface {
	Sync(ctx context.Context) error
	Publish(ctx context.Context, path, message string) (bool, error)
}

// Notifier announces completed runs.
type Notifier interface {
	Notify(ctx context.Context, event domain.RefreshEvent) error
}

// Job is one kind of refresh.
type Job struct {
	Name          string
	Enricher      Enricher
	Backups       Rotator
	CommitMessage func(now time.Time) string
}

// Options configures a Refresher. Publisher and Notifier are optional.
type Options struct {
	DatasetPath string
	// LockPath defaults to DatasetPath + ".lock".
	LockPath  string
	Publisher Publisher
	// Pull rebases onto the remote before the run when a Publisher is set.
	Pull     bool
	Notifier Notifier
	// RunID defaults to a random UUID.
	RunID string
	Clock clockwork.Clock
}

// Refresher executes a Job against the dataset file.
type Refresher struct {
	job     Job
	opts    Options
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Refresher.
func New(job Job, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Refresher {
	if opts.LockPath == "" {
		opts.LockPath = opts.DatasetPath + ".lock"
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Refresher{
		job:     job,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// Summary reports the result of a run.
type Summary struct {
	RunID      string
	Job        string
	Field      string
	StartedAt  time.Time
	FinishedAt time.Time
	Backup     backup.Result
	Outcomes   []domain.Outcome
	Counts     map[domain.Status]int
	Published  bool
	PublishErr error
	NotifyErr  error
}

// Event converts the summary into a RefreshEvent.
func (s *Summary) Event() domain.RefreshEvent {
	return domain.RefreshEvent{
		RunID:      s.RunID,
		Job:        s.Job,
		Field:      s.Field,
		Records:    len(s.Outcomes),
		Updated:    s.Counts[domain.StatusUpdated],
		Unchanged:  s.Counts[domain.StatusUnchanged],
		Skipped:    s.Counts[domain.StatusSkipped],
		Failed:     s.Counts[domain.StatusFailed],
		Published:  s.Published,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Run performs one refresh. Per-record failures never abort the run; they are
// reported in the summary. Errors are returned only when the dataset could not
// be backed up, loaded or saved, when another run holds the lock, or when ctx
// is cancelled before the dataset is saved.
func (r *Refresher) Run(ctx context.Context) (*Summary, error) {
	s := &Summary{
		RunID:     r.opts.RunID,
		Job:       r.job.Name,
		Field:     r.job.Enricher.Field(),
		StartedAt: r.opts.Clock.Now(),
		Counts:    make(map[domain.Status]int),
	}
	r.logger.Info("refresh started", "dataset", r.opts.DatasetPath, "field", s.Field)

	lock, err := acquireLock(r.opts.LockPath)
	if err != nil {
		return s, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			r.logger.Warn("release lock failed", "error", err)
		}
	}()

	if r.opts.Publisher != nil && r.opts.Pull {
		if err := r.opts.Publisher.Sync(ctx); err != nil {
			r.logger.Error("git pull failed, continuing with local copy", "error", err)
		}
	}

	s.Backup, err = r.job.Backups.Rotate(r.opts.DatasetPath)
	if err != nil {
		return s, fmt.Errorf("backup dataset: %w", err)
	}

	ds, err := dataset.Load(r.opts.DatasetPath)
	if err != nil {
		return s, err
	}

	if err := r.enrichAll(ctx, ds.Cities, s); err != nil {
		return s, err
	}

	domain.RecomputeDensity(ds.Cities)

	if err := dataset.Save(r.opts.DatasetPath, ds.Cities); err != nil {
		return s, fmt.Errorf("save dataset: %w", err)
	}
	r.logger.Info("dataset saved",
		"records", len(ds.Cities),
		"updated", s.Counts[domain.StatusUpdated],
		"unchanged", s.Counts[domain.StatusUnchanged],
		"skipped", s.Counts[domain.StatusSkipped],
		"failed", s.Counts[domain.StatusFailed],
	)

	r.publish(ctx, s)

	s.FinishedAt = r.opts.Clock.Now()
	r.notify(ctx, s)

	r.metrics.RunDuration.WithLabelValues(s.Job).Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	r.metrics.LastSuccess.WithLabelValues(s.Job).Set(float64(s.FinishedAt.Unix()))
	r.metrics.Records.WithLabelValues(s.Job).Set(float64(len(ds.Cities)))
	r.logger.Info("refresh finished", "duration", s.FinishedAt.Sub(s.StartedAt), "published", s.Published)
	return s, nil
}

// enrichAll refreshes every record in place, strictly one after another.
func (r *Refresher) enrichAll(ctx context.Context, cities []domain.City, s *Summary) error {
	s.Outcomes = make([]domain.Outcome, 0, len(cities))
	for i := range cities {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("refresh cancelled after %d of %d records: %w", i, len(cities), err)
		}
		r.logger.Debug("processing city", "city", cities[i].Name, "country", cities[i].Country)

		updated, out := r.job.Enricher.Enrich(ctx, cities[i])
		if out.Status != domain.StatusFailed {
			cities[i] = updated
		}

		s.Outcomes = append(s.Outcomes, out)
		s.Counts[out.Status]++
		r.metrics.EnrichOutcomes.WithLabelValues(out.Field, string(out.Status)).Inc()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh cancelled: %w", err)
	}
	return nil
}

func (r *Refresher) publish(ctx context.Context, s *Summary) {
	if r.opts.Publisher == nil {
		return
	}
	msg := r.job.CommitMessage(r.opts.Clock.Now())
	published, err := r.opts.Publisher.Publish(ctx, r.opts.DatasetPath, msg)
	if err != nil {
		s.PublishErr = err
		r.logger.Error("git publish failed", "error", err)
		return
	}
	s.Published = published
}

func (r *Refresher) notify(ctx context.Context, s *Summary) {
	if r.opts.Notifier == nil {
		return
	}
	err := r.opts.Notifier.Notify(ctx, s.Event())
	if err != nil {
		s.NotifyErr = err
		r.metrics.Notifications.WithLabelValues("error").Inc()
		r.logger.Error("refresh notification failed", "error", err)
		return
	}
	r.metrics.Notifications.WithLabelValues("sent").Inc()
}

// IsLocked reports whether err means another run holds the lock.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}
