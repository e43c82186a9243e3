package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediachat/internal/config"
	"mediachat/internal/models"
	"mediachat/internal/service/ai"
	"mediachat/internal/service/content"
)

const cleanupTimeout = 30 * time.Second

// Scraper fetches a page and returns its paragraph text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// EmitFunc pushes a progress event to the client.
type EmitFunc func(event string, payload any) error

// StatusEvent reports that a request reached a stage.
type StatusEvent struct {
	Stage  models.Stage `json:"stage"`
	Detail string       `json:"detail,omitempty"`
}

// StreamEvent carries the answer accumulated so far.
type StreamEvent struct {
	Content string `json:"content"`
}

// Dependencies are the collaborators the service talks to.
type Dependencies struct {
	Files      FileStore
	Generators map[string]ai.Generator
	Contents   ContentStore
	PDF        content.PageExtractor
	Scraper    Scraper
}

// Service runs the acquire, upload and inference pipeline for every mode.
type Service struct {
	db         *sql.DB
	cfg        *config.Config
	generators map[string]ai.Generator
	contents   ContentStore
	pdf        content.PageExtractor
	scraper    Scraper
	files      FileStore
	ledger     *Ledger
	uploader   *uploader
	modes      map[models.MediaType]modeHandler
}

// NewService builds a new assistant service.
func NewService(db *sql.DB, cfg *config.Config, deps Dependencies) *Service {
	s := &Service{
		db:         db,
		cfg:        cfg,
		generators: deps.Generators,
		contents:   deps.Contents,
		pdf:        deps.PDF,
		scraper:    deps.Scraper,
		files:      deps.Files,
	}
	if s.contents == nil {
		s.contents = NewMemoryContentStore()
	}
	if s.pdf == nil {
		s.pdf = content.PDFReader{}
	}
	if db != nil {
		s.ledger = NewLedger(db)
	}
	s.uploader = newUploader(deps.Files, s.ledger, cfg.Asset)
	s.modes = map[models.MediaType]modeHandler{
		models.MediaPDF:   pdfMode{svc: s},
		models.MediaURL:   urlMode{svc: s},
		models.MediaImage: assetMode{svc: s, mode: models.MediaImage},
		models.MediaVideo: assetMode{svc: s, mode: models.MediaVideo},
		models.MediaAudio: assetMode{svc: s, mode: models.MediaAudio},
	}
	return s
}

// Options describes what the parameter panel can offer.
func (s *Service) Options() models.Options {
	accept := make(map[models.MediaType][]string)
	for _, mt := range models.AllMediaTypes() {
		if exts := content.AcceptedExtensions(mt); len(exts) > 0 {
			accept[mt] = exts
		}
	}
	return models.Options{
		MediaTypes: models.AllMediaTypes(),
		Models:     s.cfg.Models,
		Defaults:   models.DefaultGenerationConfig(s.cfg.DefaultModel()),
		Bounds: map[string][2]any{
			"temperature": {models.MinTemperature, models.MaxTemperature},
			"top_p":       {models.MinTopP, models.MaxTopP},
			"max_tokens":  {models.MinMaxTokens, models.MaxMaxTokens},
		},
		Accept: accept,
	}
}

// AskRequest is one prompt submission with its inputs.
type AskRequest struct {
	Mode   models.MediaType
	Config models.GenerationConfig
	Prompt string
	URL    string
	Files  []models.Upload
}

// Check validates a submission without touching remote services.
func (s *Service) Check(mode models.MediaType, cfg models.GenerationConfig, prompt string) error {
	if _, ok := s.modes[mode]; !ok {
		return fmt.Errorf("%w: mode %q", ErrUnsupportedMedia, mode)
	}
	_, err := s.checkRequest(mode, cfg, prompt)
	return err
}

// Ask acquires or uploads the request's input, calls the model and returns
// the answer. Uploaded assets are deleted before Ask returns.
func (s *Service) Ask(ctx context.Context, req AskRequest, emit EmitFunc) (*models.Answer, error) {
	handler, ok := s.modes[req.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: mode %q", ErrUnsupportedMedia, req.Mode)
	}
	opt, err := s.checkRequest(req.Mode, req.Config, req.Prompt)
	if err != nil {
		return nil, err
	}

	prep, err := handler.prepare(ctx, req, emit)
	answer := &models.Answer{Mode: req.Mode, Model: opt.Name}
	if prep != nil && prep.cleanup != nil {
		answer.AssetName = prep.assetName
		defer s.runCleanup(ctx, prep, answer, emit)
	}
	if err != nil {
		return answer, err
	}
	if !req.Mode.IsAsset() {
		emitStatus(emit, models.StagePromptEntered, "")
	}

	text, err := s.generate(ctx, req.Mode, opt, req.Config, prep.parts, emit)
	if err != nil {
		return answer, err
	}
	answer.Text = text
	emitStatus(emit, models.StageRendered, "")
	return answer, nil
}

// runCleanup deletes the request's remote asset even if ctx is already done.
func (s *Service) runCleanup(ctx context.Context, prep *prepared, answer *models.Answer, emit EmitFunc) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := prep.cleanup(cctx); err != nil {
		log.Printf("cleanup asset %s failed: %v", prep.assetName, err)
		answer.CleanupError = err.Error()
		return
	}
	answer.AssetDeleted = true
	emitStatus(emit, models.StageAssetDeleted, prep.assetName)
}

func (s *Service) checkRequest(mode models.MediaType, cfg models.GenerationConfig, prompt string) (models.ModelOption, error) {
	opt, err := cfg.Validate(s.cfg.Models)
	if err != nil {
		return models.ModelOption{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return models.ModelOption{}, invalidInput("prompt is required")
	}
	if _, ok := s.generators[opt.Provider]; !ok {
		return models.ModelOption{}, invalidInput("provider %s not available", opt.Provider)
	}
	if mode.IsAsset() && opt.Provider != ai.ProviderGemini {
		return models.ModelOption{}, invalidInput("model %s cannot read %s files", opt.Name, mode)
	}
	return opt, nil
}

func (s *Service) generate(ctx context.Context, mode models.MediaType, opt models.ModelOption, cfg models.GenerationConfig, parts []ai.Part, emit EmitFunc) (string, error) {
	modeCfg := s.cfg.Mode(mode)
	req := ai.Request{
		Model:            opt.Name,
		Parts:            parts,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		MaxOutputTokens:  cfg.MaxTokens,
		ResponseMIMEType: modeCfg.ResponseMIMEType,
		Timeout:          modeCfg.Timeout(),
	}
	emitStatus(emit, models.StageInference, opt.Name)
	text, err := s.generators[opt.Provider].Stream(ctx, req, func(acc string) error {
		if emit == nil {
			return nil
		}
		return emit("stream", StreamEvent{Content: acc})
	})
	if err != nil {
		return "", stepError(KindInference, err)
	}
	return text, nil
}

// AcquireRequest names the PDFs or URL whose text should be kept for later questions.
type AcquireRequest struct {
	Mode  models.MediaType
	URL   string
	Files []models.Upload
}

// Acquire extracts text once and stores it for repeated questions.
func (s *Service) Acquire(ctx context.Context, req AcquireRequest) (*models.Content, error) {
	if req.Mode != models.MediaPDF && req.Mode != models.MediaURL {
		return nil, fmt.Errorf("%w: only pdf and url content can be stored, got %q", ErrUnsupportedMedia, req.Mode)
	}
	text, sources, err := s.acquireText(ctx, req.Mode, req.URL, req.Files)
	if err != nil {
		return nil, err
	}
	c := &models.Content{
		ID:        uuid.NewString(),
		Mode:      req.Mode,
		Text:      text,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	ttl := s.cfg.BasicConfig.ContentTTL()
	if err := s.contents.Save(ctx, c, ttl); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	if ttl > 0 {
		expires := c.CreatedAt.Add(ttl)
		c.ExpiresAt = &expires
	}
	return c, nil
}

func (s *Service) GetContent(ctx context.Context, id string) (*models.Content, error) {
	return s.contents.Load(ctx, id)
}

func (s *Service) DropContent(ctx context.Context, id string) error {
	return s.contents.Delete(ctx, id)
}

// AskContent asks a question about previously acquired content.
func (s *Service) AskContent(ctx context.Context, id, prompt string, cfg models.GenerationConfig, emit EmitFunc) (*models.Answer, error) {
	c, err := s.contents.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	opt, err := s.checkRequest(c.Mode, cfg, prompt)
	if err != nil {
		return nil, err
	}
	emitStatus(emit, models.StagePromptEntered, c.ID)
	text, err := s.generate(ctx, c.Mode, opt, cfg, textParts(prompt, c.Text), emit)
	if err != nil {
		return nil, err
	}
	emitStatus(emit, models.StageRendered, "")
	return &models.Answer{Mode: c.Mode, Model: opt.Name, Text: text}, nil
}

func emitStatus(emit EmitFunc, stage models.Stage, detail string) {
	if emit == nil {
		return
	}
	if err := emit("status", StatusEvent{Stage: stage, Detail: detail}); err != nil {
		log.Printf("emit %s: %v", stage, err)
	}
}
