package gemini

import (
	"context"
	"strings"

	"github.com/nijaru/vidsight/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// filesAPI and modelsAPI are the parts of the genai SDK the client uses.
type filesAPI interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
}

// Client talks to the Gemini Files and Models endpoints. It is built once
// at startup and passed to every workflow run.
type Client struct {
	files  filesAPI
	models modelsAPI
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "gemini: create client")
	}

	return &Client{files: client.Files, models: client.Models}, nil
}

// Upload sends the file at path to the Files API.
func (c *Client) Upload(ctx context.Context, path, mimeType string) (*models.Asset, error) {
	f, err := c.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, errors.Wrap(err, "gemini: upload file")
	}

	logrus.WithFields(logrus.Fields{
		"name":  f.Name,
		"state": f.State,
	}).Debug("File uploaded")

	return toAsset(f), nil
}

// Get fetches a fresh snapshot of the named file.
func (c *Client) Get(ctx context.Context, name string) (*models.Asset, error) {
	f, err := c.files.Get(ctx, name, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "gemini: get file %s", name)
	}
	return toAsset(f), nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.files.Delete(ctx, name, nil); err != nil {
		return errors.Wrapf(err, "gemini: delete file %s", name)
	}
	return nil
}

// Generate asks model to respond to prompt with asset attached and returns
// the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, model, prompt string, asset models.Asset) (string, error) {
	resp, err := c.models.GenerateContent(ctx, model, buildContents(prompt, asset), nil)
	if err != nil {
		return "", errors.Wrapf(err, "gemini: generate content with %s", model)
	}
	return extractText(resp)
}

func buildContents(prompt string, asset models.Asset) []*genai.Content {
	parts := make([]*genai.Part, 0, 2)
	if prompt != "" {
		parts = append(parts, &genai.Part{Text: prompt})
	}
	parts = append(parts, &genai.Part{
		FileData: &genai.FileData{
			FileURI:  asset.URI,
			MIMEType: asset.MIMEType,
		},
	})

	return []*genai.Content{{Role: "user", Parts: parts}}
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

func toAsset(f *genai.File) *models.Asset {
	a := &models.Asset{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
		State:    toAssetState(f.State),
	}
	if f.SizeBytes != nil {
		a.SizeBytes = *f.SizeBytes
	}
	return a
}

func toAssetState(s genai.FileState) models.AssetState {
	switch s {
	case genai.FileStateActive:
		return models.AssetActive
	case genai.FileStateProcessing:
		return models.AssetPending
	case genai.FileStateFailed:
		return models.AssetFailed
	default:
		return models.AssetUnknown
	}
}
