package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/models"
	"github.com/sirupsen/logrus"
)

const (
	ConfigurationWarning = "GOOGLE_API_KEY is not set. Add it to your environment or .env file to enable video analysis."
	MissingInputMessage  = "Please upload a video file."

	deleteTimeout = 30 * time.Second
)

// Remote is the full remote surface a workflow needs.
type Remote interface {
	AssetStore
	Generator
}

type Options struct {
	Model          string
	TempDir        string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	DeleteUploaded bool
}

type Input struct {
	Video  *models.Payload
	Prompt string
}

// Progress is emitted on every state transition after idle.
type Progress struct {
	State models.State
	Asset *models.Asset
}

type Result struct {
	State   models.State
	Text    string
	Message string
	Asset   *models.Asset
	Err     error
}

func (r *Result) Succeeded() bool {
	return r.State == models.StateDone
}

// Workflow runs upload, readiness polling and generation for one video.
// A Workflow built with a nil Remote is disabled and rejects every run
// before touching the network.
type Workflow struct {
	remote         Remote
	uploader       *Uploader
	poller         *Poller
	invoker        *Invoker
	deleteUploaded bool
}

func NewWorkflow(remote Remote, opts Options) *Workflow {
	w := &Workflow{
		remote:         remote,
		deleteUploaded: opts.DeleteUploaded,
	}
	if remote == nil {
		return w
	}

	w.uploader = &Uploader{Store: remote, TempDir: opts.TempDir}
	w.poller = NewPoller(remote, opts.PollInterval, opts.PollTimeout)
	w.invoker = &Invoker{Generator: remote, Model: opts.Model}
	return w
}

func (w *Workflow) Enabled() bool {
	return w.remote != nil
}

// Poller exposes the readiness poller so callers can swap its clock.
func (w *Workflow) Poller() *Poller {
	return w.poller
}

// Run executes the workflow synchronously. Progress updates are sent on
// progress when it is non-nil. Run never panics and always returns a
// non-nil Result.
func (w *Workflow) Run(ctx context.Context, in Input, progress chan<- Progress) (res *Result) {
	const op = "Workflow.Run"

	if !w.Enabled() {
		return reject(errors.Configuration(op, ConfigurationWarning))
	}
	if in.Video.Empty() {
		return reject(errors.MissingInput(op, MissingInputMessage))
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Analysis workflow panicked")
			res = fail(nil, errors.Internal(op, fmt.Errorf("%v", r), "analysis workflow panicked"))
		}
	}()

	logger := logrus.WithField("filename", in.Video.Filename)
	start := time.Now()

	emit(ctx, progress, models.StateUploading, nil)
	asset, err := w.uploader.Upload(ctx, in.Video)
	if err != nil {
		return fail(nil, err)
	}
	if w.deleteUploaded {
		defer w.deleteAsset(asset.Name)
	}

	emit(ctx, progress, models.StateWaitingReady, asset)
	ready, err := w.poller.Wait(ctx, asset.Name)
	if err != nil {
		return fail(asset, err)
	}

	emit(ctx, progress, models.StateGenerating, ready)
	text, err := w.invoker.Invoke(ctx, models.NewAnalysisRequest(in.Prompt, ready))
	if err != nil {
		return fail(ready, err)
	}

	emit(ctx, progress, models.StateDone, ready)
	logger.WithFields(logrus.Fields{
		"name":     ready.Name,
		"duration": time.Since(start).String(),
	}).Info("Analysis completed")

	return &Result{State: models.StateDone, Text: text, Asset: ready}
}

// Start runs the workflow on its own goroutine. The progress channel is
// closed once the run finishes, after the result has been sent.
func (w *Workflow) Start(ctx context.Context, in Input) (<-chan Progress, <-chan *Result) {
	progress := make(chan Progress, 4)
	result := make(chan *Result, 1)

	go func() {
		defer close(progress)
		result <- w.Run(ctx, in, progress)
		close(result)
	}()

	return progress, result
}

func (w *Workflow) deleteAsset(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if err := w.remote.Delete(ctx, name); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("Failed to delete uploaded file")
		return
	}
	logrus.WithField("name", name).Debug("Deleted uploaded file")
}

// UserMessage turns a workflow error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch errors.KindOf(err) {
	case errors.KindConfiguration:
		return ConfigurationWarning
	case errors.KindMissingInput:
		return MissingInputMessage
	case errors.KindPollTimeout:
		return fmt.Sprintf("The video was not ready for analysis in time: %v", err)
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}

func reject(err error) *Result {
	return &Result{State: models.StateIdle, Message: UserMessage(err), Err: err}
}

func fail(asset *models.Asset, err error) *Result {
	logrus.WithError(err).WithField("kind", errors.KindOf(err)).Error("Analysis failed")
	return &Result{State: models.StateFailed, Message: UserMessage(err), Asset: asset, Err: err}
}

func emit(ctx context.Context, progress chan<- Progress, state models.State, asset *models.Asset) {
	if progress == nil {
		return
	}
	select {
	case progress <- Progress{State: state, Asset: asset}:
	case <-ctx.Done():
	}
}
