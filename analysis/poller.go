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
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second
)

type assetGetter interface {
	Get(ctx context.Context, name string) (*models.Asset, error)
}

// Poller waits for an uploaded file to become active.
type Poller struct {
	Store    assetGetter
	Interval time.Duration
	Timeout  time.Duration

	NowFunc   func() time.Time
	SleepFunc func(ctx context.Context, d time.Duration) error
}

func NewPoller(store assetGetter, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Poller{
		Store:     store,
		Interval:  interval,
		Timeout:   timeout,
		NowFunc:   time.Now,
		SleepFunc: sleep,
	}
}

// Wait fetches the named file until it is active, it fails remotely, or
// Timeout has elapsed since the first fetch. Fetch errors are returned
// immediately.
func (p *Poller) Wait(ctx context.Context, name string) (*models.Asset, error) {
	const op = "Poller.Wait"
	logger := logrus.WithField("name", name)

	start := p.NowFunc()
	for attempt := 1; ; attempt++ {
		asset, err := p.Store.Get(ctx, name)
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Error("Failed to fetch file state")
			return nil, errors.Internal(op, err, "failed to fetch file state")
		}
		if asset.Name != name {
			return nil, errors.Internal(op, nil,
				fmt.Sprintf("file name changed from %s to %s while polling", name, asset.Name))
		}

		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"state":   asset.State,
		}).Debug("Polled file state")

		switch {
		case asset.IsActive():
			return asset, nil
		case asset.IsFailed():
			logger.Warn("Remote processing failed")
			return nil, errors.AssetFailed(op, name)
		}

		if p.NowFunc().Sub(start) >= p.Timeout {
			logger.WithField("attempts", attempt).Warn("File did not become active before timeout")
			return nil, errors.PollTimeout(op, name, p.Timeout)
		}

		if err := p.SleepFunc(ctx, p.Interval); err != nil {
			return nil, errors.Internal(op, err, "polling cancelled")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
