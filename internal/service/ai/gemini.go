package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"mediachat/internal/models"
)

// GeminiClient serves generation and the Files API from one authenticated client.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds the process-wide client; the key comes from configuration.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required (set GEMINI_API_KEY)")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Stream runs GenerateContentStream and reports the accumulated text per chunk.
// Provider errors are returned as they come.
func (g *GeminiClient) Stream(ctx context.Context, req Request, fn ChunkFunc) (string, error) {
	var full strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, buildContents(req), buildConfig(req)) {
		if err != nil {
			return "", err
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if fn != nil {
			if err := fn(full.String()); err != nil {
				return "", err
			}
		}
	}
	return full.String(), nil
}

// Upload sends the file bytes to the provider's file store.
func (g *GeminiClient) Upload(ctx context.Context, r io.Reader, displayName, mimeType string) (*models.RemoteAsset, error) {
	f, err := g.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}
	return toAsset(f), nil
}

// GetFile fetches the current state of an uploaded file.
func (g *GeminiClient) GetFile(ctx context.Context, name string) (*models.RemoteAsset, error) {
	f, err := g.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	return toAsset(f), nil
}

// DeleteFile removes an uploaded file. A file the provider no longer knows is
// treated as deleted.
func (g *GeminiClient) DeleteFile(ctx context.Context, name string) error {
	_, err := g.client.Files.Delete(ctx, name, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func buildContents(req Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsFile() {
			parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: p.FileURI, MIMEType: p.MIMEType}})
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{{Role: "user", Parts: parts}}
}

func buildConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		TopP:             genai.Ptr(float32(req.TopP)),
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		ResponseMIMEType: req.ResponseMIMEType,
	}
	if req.Timeout > 0 {
		timeout := req.Timeout
		cfg.HTTPOptions = &genai.HTTPOptions{Timeout: &timeout}
	}
	return cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func toAsset(f *genai.File) *models.RemoteAsset {
	asset := &models.RemoteAsset{
		Name:        f.Name,
		URI:         f.URI,
		DisplayName: f.DisplayName,
		MIMEType:    f.MIMEType,
		State:       models.AssetState(f.State),
	}
	if f.SizeBytes != nil {
		asset.SizeBytes = *f.SizeBytes
	}
	if f.Error != nil {
		asset.Error = f.Error.Message
	}
	if asset.State == "" {
		asset.State = models.AssetStateUnspecified
	}
	return asset
}
