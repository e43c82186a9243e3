package assistant

import (
	"context"
	"net/url"
	"strings"

	"mediachat/internal/models"
	"mediachat/internal/service/ai"
	"mediachat/internal/service/content"
)

// modeHandler turns a request's input into model parts.
type modeHandler interface {
	prepare(ctx context.Context, req AskRequest, emit EmitFunc) (*prepared, error)
}

type prepared struct {
	parts     []ai.Part
	assetName string
	// cleanup is set when a remote asset has to be deleted after the answer.
	cleanup func(ctx context.Context) error
}

// textParts orders a text-mode request as prompt followed by the acquired text.
func textParts(prompt, text string) []ai.Part {
	return []ai.Part{ai.TextPart(prompt), ai.TextPart(text)}
}

type pdfMode struct {
	svc *Service
}

func (m pdfMode) prepare(ctx context.Context, req AskRequest, emit EmitFunc) (*prepared, error) {
	emitStatus(emit, models.StageNoInput, "")
	text, sources, err := m.svc.acquireText(ctx, models.MediaPDF, "", req.Files)
	if err != nil {
		return nil, err
	}
	emitStatus(emit, models.StageContentAcquired, strings.Join(sources, ", "))
	return &prepared{parts: textParts(req.Prompt, text)}, nil
}

type urlMode struct {
	svc *Service
}

func (m urlMode) prepare(ctx context.Context, req AskRequest, emit EmitFunc) (*prepared, error) {
	emitStatus(emit, models.StageNoInput, "")
	text, _, err := m.svc.acquireText(ctx, models.MediaURL, req.URL, nil)
	if err != nil {
		return nil, err
	}
	emitStatus(emit, models.StageContentAcquired, req.URL)
	return &prepared{parts: textParts(req.Prompt, text)}, nil
}

// acquireText extracts PDF text or scrapes a page and names the sources used.
func (s *Service) acquireText(ctx context.Context, mode models.MediaType, rawURL string, files []models.Upload) (string, []string, error) {
	switch mode {
	case models.MediaPDF:
		if len(files) == 0 {
			return "", nil, invalidInput("at least one pdf file is required")
		}
		sources := make([]string, 0, len(files))
		for _, f := range files {
			if !content.AcceptsExtension(models.MediaPDF, f.Name) {
				return "", nil, invalidInput("%s is not a pdf file", f.Name)
			}
			sources = append(sources, f.Name)
		}
		text, err := content.ExtractText(ctx, s.pdf, files)
		if err != nil {
			return "", nil, stepError(KindAcquisition, err)
		}
		return text, sources, nil
	case models.MediaURL:
		target, err := checkURL(rawURL)
		if err != nil {
			return "", nil, err
		}
		if s.scraper == nil {
			return "", nil, invalidInput("url mode is not available")
		}
		text, err := s.scraper.Scrape(ctx, target)
		if err != nil {
			return "", nil, stepError(KindAcquisition, err)
		}
		return text, []string{target}, nil
	default:
		return "", nil, invalidInput("mode %s has no text content", mode)
	}
}

func checkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalidInput("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalidInput("%q is not an http(s) url", raw)
	}
	return u.String(), nil
}

type assetMode struct {
	svc  *Service
	mode models.MediaType
}

func (m assetMode) prepare(ctx context.Context, req AskRequest, emit EmitFunc) (*prepared, error) {
	emitStatus(emit, models.StageNoFile, "")
	if len(req.Files) == 0 {
		return nil, invalidInput("%s mode needs a file", m.mode)
	}
	if len(req.Files) > 1 && !m.mode.MultipleFiles() {
		return nil, invalidInput("%s mode takes exactly one file, got %d", m.mode, len(req.Files))
	}
	up := req.Files[0]
	// known extensions of another mode are never uploaded; unknown ones go to the MIME policy
	if _, known := content.LookupMIME(up.Name); known && !content.AcceptsExtension(m.mode, up.Name) {
		return nil, invalidInput("%s is not an accepted %s file", up.Name, m.mode)
	}
	if m.svc.files == nil {
		return nil, invalidInput("%s mode is not available", m.mode)
	}

	asset, err := m.svc.uploader.upload(ctx, m.mode, up, emit)
	if asset == nil {
		return nil, err
	}
	prep := &prepared{
		assetName: asset.Name,
		cleanup: func(ctx context.Context) error {
			return m.svc.uploader.remove(ctx, asset.Name)
		},
	}
	if err != nil {
		return prep, err
	}
	prep.parts = []ai.Part{ai.FilePart(asset.URI, asset.MIMEType), ai.TextPart(req.Prompt)}
	return prep, nil
}
