package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/vidsight/analysis"
	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/metrics"
	"github.com/nijaru/vidsight/models"
	"github.com/sirupsen/logrus"
)

const saveTimeout = 10 * time.Second

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Store interface {
	Save(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, limit int) ([]*models.Job, error)
}

type Archiver interface {
	Save(ctx context.Context, job *models.Job) error
	Load(ctx context.Context, id string) (*models.Job, error)
}

type Config struct {
	Model   string
	Timeout time.Duration
}

type Request struct {
	Video  *models.Payload
	Prompt string
}

// Runner tracks analysis runs as jobs. Each submitted job runs on its own
// goroutine; its progress is written to the store as it happens.
type Runner struct {
	workflow *analysis.Workflow
	store    Store
	archive  Archiver
	metrics  *metrics.Metrics
	cfg      Config

	wg sync.WaitGroup

	NewID func() string
}

// NewRunner builds a Runner. archive and m may be nil.
func NewRunner(workflow *analysis.Workflow, store Store, archive Archiver, m *metrics.Metrics, cfg Config) *Runner {
	return &Runner{
		workflow: workflow,
		store:    store,
		archive:  archive,
		metrics:  m,
		cfg:      cfg,
		NewID:    uuid.NewString,
	}
}

func (r *Runner) Enabled() bool {
	return r.workflow.Enabled()
}

// Submit records a new job and starts it in the background. The returned
// job is a snapshot taken before the run starts.
func (r *Runner) Submit(ctx context.Context, req Request) (*models.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}
	snapshot := *job

	runCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.run(runCtx, job, req)
	}()

	return &snapshot, nil
}

// Analyze records a new job and runs it to completion before returning.
func (r *Runner) Analyze(ctx context.Context, req Request) (*models.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	r.wg.Add(1)
	defer r.wg.Done()
	r.run(runCtx, job, req)
	return job, nil
}

// Get returns the job with id. A job that stopped receiving updates long
// after its deadline is reported as failed. Jobs missing from the store are
// looked up in the archive when one is configured.
func (r *Runner) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := r.store.Get(ctx, id)
	if errors.IsNotFound(err) && r.archive != nil {
		archived, aerr := r.archive.Load(ctx, id)
		if aerr != nil {
			logrus.WithError(aerr).WithField("job_id", id).Debug("Job not found in archive")
			return nil, err
		}
		return archived, nil
	}
	if err != nil {
		return nil, err
	}
	r.markStale(job)
	return job, nil
}

func (r *Runner) markStale(job *models.Job) {
	if job.IsStale(2 * r.cfg.Timeout) {
		job.State = models.StateFailed
		job.ErrorKind = string(errors.KindInternal)
		job.Message = "An error occurred: analysis stopped responding"
	}
}

// List returns the most recent jobs, newest first. limit is clamped to
// MaxListLimit and defaults to DefaultListLimit.
func (r *Runner) List(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	list, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, job := range list {
		r.markStale(job)
	}
	return list, nil
}

// Wait blocks until every running job has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) create(ctx context.Context, req Request) (*models.Job, error) {
	const op = "Runner.create"

	if !r.workflow.Enabled() {
		return nil, errors.Configuration(op, analysis.ConfigurationWarning)
	}
	if req.Video.Empty() {
		return nil, errors.MissingInput(op, analysis.MissingInputMessage)
	}

	job := &models.Job{
		ID:        r.NewID(),
		Filename:  req.Video.Filename,
		MediaType: req.Video.MediaType,
		Prompt:    req.Prompt,
		Model:     r.cfg.Model,
		State:     models.StateIdle,
	}
	if err := r.store.Save(ctx, job); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"filename": job.Filename,
	}).Info("Analysis job created")
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *models.Job, req Request) {
	logger := logrus.WithField("job_id", job.ID)

	var finish func(state, kind string)
	if r.metrics != nil {
		finish = r.metrics.Started()
	}

	progress, result := r.workflow.Start(ctx, analysis.Input{Video: req.Video, Prompt: req.Prompt})
	for p := range progress {
		job.State = p.State
		if p.Asset != nil {
			job.AssetName = p.Asset.Name
			job.AssetURI = p.Asset.URI
		}
		logger.WithField("state", p.State).Debug("Job progressed")
		r.save(job)
	}

	res := <-result
	job.State = res.State
	job.Result = res.Text
	job.Message = res.Message
	if res.Err != nil {
		job.ErrorKind = string(errors.KindOf(res.Err))
	}
	r.save(job)

	if finish != nil {
		finish(string(job.State), job.ErrorKind)
	}

	if r.archive != nil {
		actx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := r.archive.Save(actx, job); err != nil {
			logger.WithError(err).Warn("Failed to archive job")
		}
	}

	switch {
	case job.IsDone():
		logger.Info("Analysis job finished")
	case job.IsFailed():
		logger.WithFields(logrus.Fields{
			"kind":  job.ErrorKind,
			"error": res.Err,
		}).Warn("Analysis job failed")
	}
}

// save uses its own context so progress is still recorded after the run's
// deadline has passed.
func (r *Runner) save(job *models.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := r.store.Save(ctx, job); err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Error("Failed to save job")
	}
}
