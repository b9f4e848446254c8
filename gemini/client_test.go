package gemini

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nijaru/vidsight/models"
	"google.golang.org/genai"
)

type fakeFiles struct {
	uploaded string
	mimeType string
	file     *genai.File
	err      error
	deleted  []string
}

func (f *fakeFiles) UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error) {
	f.uploaded = path
	f.mimeType = config.MIMEType
	return f.file, f.err
}

func (f *fakeFiles) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	return f.file, f.err
}

func (f *fakeFiles) Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	f.deleted = append(f.deleted, name)
	return &genai.DeleteFileResponse{}, f.err
}

type fakeModels struct {
	model    string
	contents []*genai.Content
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.resp, f.err
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, &genai.Part{Text: t})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestUploadMapsFile(t *testing.T) {
	size := int64(42)
	files := &fakeFiles{file: &genai.File{
		Name:      "files/abc",
		URI:       "https://generativelanguage.googleapis.com/v1beta/files/abc",
		MIMEType:  "video/mp4",
		State:     genai.FileStateProcessing,
		SizeBytes: &size,
	}}
	c := &Client{files: files}

	asset, err := c.Upload(context.Background(), "/tmp/upload-1.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if files.uploaded != "/tmp/upload-1.mp4" || files.mimeType != "video/mp4" {
		t.Errorf("unexpected upload call: path=%s mime=%s", files.uploaded, files.mimeType)
	}
	if asset.Name != "files/abc" || asset.State != models.AssetPending || asset.SizeBytes != 42 {
		t.Errorf("unexpected asset: %+v", asset)
	}
}

func TestUploadWrapsError(t *testing.T) {
	c := &Client{files: &fakeFiles{err: fmt.Errorf("quota exceeded")}}

	_, err := c.Upload(context.Background(), "/tmp/x.mp4", "video/mp4")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped quota error, got %v", err)
	}
}

func TestToAssetState(t *testing.T) {
	tests := []struct {
		in   genai.FileState
		want models.AssetState
	}{
		{genai.FileStateActive, models.AssetActive},
		{genai.FileStateProcessing, models.AssetPending},
		{genai.FileStateFailed, models.AssetFailed},
		{genai.FileStateUnspecified, models.AssetUnknown},
		{genai.FileState("SOMETHING_NEW"), models.AssetUnknown},
	}

	for _, tt := range tests {
		if got := toAssetState(tt.in); got != tt.want {
			t.Errorf("toAssetState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateBuildsTextAndFileParts(t *testing.T) {
	m := &fakeModels{resp: textResponse("SUMM", "ARY")}
	c := &Client{models: m}
	asset := models.Asset{Name: "files/abc", URI: "https://example.com/files/abc", MIMEType: "video/mp4"}

	text, err := c.Generate(context.Background(), "gemini-2.5-flash", "summarize", asset)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "SUMMARY" {
		t.Errorf("expected SUMMARY, got %q", text)
	}
	if m.model != "gemini-2.5-flash" {
		t.Errorf("unexpected model %q", m.model)
	}

	if len(m.contents) != 1 || len(m.contents[0].Parts) != 2 {
		t.Fatalf("expected one content with two parts, got %+v", m.contents)
	}
	parts := m.contents[0].Parts
	if parts[0].Text != "summarize" {
		t.Errorf("expected first part to be the prompt, got %+v", parts[0])
	}
	if parts[1].FileData == nil || parts[1].FileData.FileURI != asset.URI {
		t.Errorf("expected second part to reference the file, got %+v", parts[1])
	}
}

func TestGenerateEmptyPromptSendsOnlyFile(t *testing.T) {
	m := &fakeModels{resp: textResponse("ok")}
	c := &Client{models: m}

	if _, err := c.Generate(context.Background(), "m", "", models.Asset{URI: "u"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n := len(m.contents[0].Parts); n != 1 {
		t.Errorf("expected a single file part, got %d parts", n)
	}
}

func TestExtractTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "answer"},
		}}}},
	}

	text, err := extractText(resp)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "answer" {
		t.Errorf("expected 'answer', got %q", text)
	}
}

func TestExtractTextNoCandidates(t *testing.T) {
	if _, err := extractText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
