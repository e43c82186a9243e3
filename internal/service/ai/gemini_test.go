package ai

import (
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"

	"mediachat/internal/models"
)

func TestBuildContentsKeepsPartOrder(t *testing.T) {
	req := Request{Parts: []Part{FilePart("files/abc", "video/mp4"), TextPart("What happens?")}}
	contents := buildContents(req)
	if len(contents) != 1 || contents[0].Role != "user" {
		t.Fatalf("expected one user content, got %+v", contents)
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].FileData == nil || parts[0].FileData.FileURI != "files/abc" || parts[0].FileData.MIMEType != "video/mp4" {
		t.Fatalf("first part should reference the file, got %+v", parts[0])
	}
	if parts[1].Text != "What happens?" {
		t.Fatalf("second part should be the prompt, got %+v", parts[1])
	}
}

func TestBuildConfigMapsParameters(t *testing.T) {
	cfg := buildConfig(Request{Temperature: 0.5, TopP: 0.9, MaxOutputTokens: 1200, ResponseMIMEType: "text/plain"})
	if cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Fatalf("temperature not mapped: %+v", cfg.Temperature)
	}
	if cfg.TopP == nil || *cfg.TopP != float32(0.9) {
		t.Fatalf("top_p not mapped: %+v", cfg.TopP)
	}
	if cfg.MaxOutputTokens != 1200 || cfg.ResponseMIMEType != "text/plain" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.HTTPOptions != nil {
		t.Fatalf("no timeout override expected")
	}

	cfg = buildConfig(Request{Timeout: 600 * time.Second})
	if cfg.HTTPOptions == nil || cfg.HTTPOptions.Timeout == nil || *cfg.HTTPOptions.Timeout != 600*time.Second {
		t.Fatalf("timeout override missing: %+v", cfg.HTTPOptions)
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking", Thought: true},
			{Text: "Rev"},
			{Text: "enue."},
		}},
	}}}
	if got := responseText(resp); got != "Revenue." {
		t.Fatalf("got %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("empty response should give empty text, got %q", got)
	}
}

func TestToAssetCopiesState(t *testing.T) {
	size := int64(42)
	asset := toAsset(&genai.File{
		Name:      "files/x",
		URI:       "https://example/files/x",
		MIMEType:  "audio/mpeg",
		SizeBytes: &size,
		State:     genai.FileStateFailed,
		Error:     &genai.FileStatus{Message: "bad codec"},
	})
	if asset.State != models.AssetStateFailed || !asset.State.IsFailed() {
		t.Fatalf("unexpected state %q", asset.State)
	}
	if asset.SizeBytes != 42 || asset.Error != "bad codec" {
		t.Fatalf("unexpected asset %+v", asset)
	}

	asset = toAsset(&genai.File{Name: "files/y"})
	if asset.State != models.AssetStateUnspecified || !asset.State.IsReady() {
		t.Fatalf("missing state should be treated as ready, got %q", asset.State)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(t.Context(), " ", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("delete: %w", genai.APIError{Code: 404, Message: "gone"})) {
		t.Fatalf("wrapped 404 should be not found")
	}
	if isNotFound(genai.APIError{Code: 500}) || isNotFound(nil) {
		t.Fatalf("only 404 is not found")
	}
}
