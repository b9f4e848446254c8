package models

import (
	"path/filepath"
	"strings"
)

type AssetState string

const (
	AssetPending AssetState = "pending"
	AssetActive  AssetState = "active"
	AssetFailed  AssetState = "failed"
	AssetUnknown AssetState = "unknown"
)

// Asset is a snapshot of a file held by the remote store. Name identifies
// the file and never changes between snapshots.
type Asset struct {
	Name      string     `json:"name"`
	URI       string     `json:"uri"`
	MIMEType  string     `json:"mime_type"`
	State     AssetState `json:"state"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
}

func (a *Asset) IsActive() bool { return a.State == AssetActive }
func (a *Asset) IsFailed() bool { return a.State == AssetFailed }

// Payload is an uploaded video held in memory for one workflow run.
type Payload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Ext returns the lower-cased extension of the original filename,
// including the leading dot.
func (p *Payload) Ext() string {
	return strings.ToLower(filepath.Ext(p.Filename))
}

func (p *Payload) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// AnalysisRequest pairs a prompt with a ready asset.
type AnalysisRequest struct {
	prompt string
	asset  Asset
}

func NewAnalysisRequest(prompt string, asset *Asset) AnalysisRequest {
	return AnalysisRequest{prompt: prompt, asset: *asset}
}

func (r AnalysisRequest) Prompt() string { return r.prompt }
func (r AnalysisRequest) Asset() Asset   { return r.asset }
