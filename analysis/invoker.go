package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/models"
	"github.com/sirupsen/logrus"
)

// Generator is the remote generation endpoint.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, asset models.Asset) (string, error)
}

type Invoker struct {
	Generator Generator
	Model     string
}

// Invoke sends one generation request for req. The asset is assumed to be
// active already.
func (i *Invoker) Invoke(ctx context.Context, req models.AnalysisRequest) (string, error) {
	const op = "Invoker.Invoke"
	asset := req.Asset()
	logger := logrus.WithFields(logrus.Fields{
		"model": i.Model,
		"name":  asset.Name,
	})

	logger.Info("Generating analysis")
	text, err := i.Generator.Generate(ctx, i.Model, req.Prompt(), asset)
	if err != nil {
		logger.WithError(err).Error("Generation failed")
		return "", errors.Generation(op, err)
	}

	if strings.TrimSpace(text) == "" {
		logger.Error("Generation returned empty text")
		return "", errors.Generation(op, fmt.Errorf("no content generated"))
	}

	return text, nil
}
