package models

import (
	"testing"
	"time"
)

func TestPayloadExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.mp4", ".mp4"},
		{"Holiday.MOV", ".mov"},
		{"archive.tar.webm", ".webm"},
		{"noext", ""},
	}

	for _, tt := range tests {
		p := &Payload{Filename: tt.filename}
		if got := p.Ext(); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestPayloadEmpty(t *testing.T) {
	var nilPayload *Payload
	if !nilPayload.Empty() {
		t.Error("nil payload should be empty")
	}
	if !(&Payload{Filename: "a.mp4"}).Empty() {
		t.Error("payload without data should be empty")
	}
	if (&Payload{Filename: "a.mp4", Data: []byte{0}}).Empty() {
		t.Error("payload with data should not be empty")
	}
}

func TestAnalysisRequestCopiesAsset(t *testing.T) {
	asset := &Asset{Name: "files/abc", URI: "https://example.com/files/abc", State: AssetActive}
	req := NewAnalysisRequest("summarize", asset)

	asset.URI = "changed"

	if req.Asset().URI != "https://example.com/files/abc" {
		t.Errorf("request asset mutated through caller pointer: %s", req.Asset().URI)
	}
	if req.Prompt() != "summarize" {
		t.Errorf("expected prompt 'summarize', got %q", req.Prompt())
	}
}

func TestJobIsStale(t *testing.T) {
	job := &Job{State: StateWaitingReady, UpdatedAt: time.Now().Add(-time.Hour)}
	if !job.IsStale(time.Minute) {
		t.Error("expected old in-flight job to be stale")
	}

	job.State = StateDone
	if job.IsStale(time.Minute) {
		t.Error("terminal job should never be stale")
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateUploading, StateWaitingReady, StateGenerating} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StateDone, StateFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
