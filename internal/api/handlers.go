package api

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mediachat/internal/models"
	"mediachat/internal/service/assistant"
	"mediachat/internal/worker"
)

//go:embed static/index.html
var indexHTML []byte

const (
	// multipart parts beyond this stay on disk while the request is handled
	multipartMemory = 32 << 20
	// room for form fields and part headers on top of the file bytes
	formOverhead = 1 << 20
)

// Handler wires HTTP routes to the assistant service and runs answer
// pipelines on a shared worker pool.
type Handler struct {
	assistant      *assistant.Service
	workers        *worker.Dispatcher
	maxUploadBytes int64
}

// NewHandler constructs a Handler instance.
func NewHandler(service *assistant.Service, cfg worker.DispatcherConfig, maxUploadBytes int64) *Handler {
	return &Handler{
		assistant:      service,
		workers:        worker.NewDispatcher(cfg),
		maxUploadBytes: maxUploadBytes,
	}
}

// Close stops the worker pool.
func (h *Handler) Close() {
	h.workers.Stop()
}

// runPipeline runs fn on the worker pool keyed by client address. Nothing has
// been written to the response when it reports the pool as busy.
func (h *Handler) runPipeline(c *gin.Context, fn func(ctx context.Context)) {
	err := h.workers.Do(c.Request.Context(), c.ClientIP(), fn)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is busy, please retry", "kind": assistant.KindInternal})
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workers": h.workers.Stats()})
	})
	api := router.Group("/api")
	api.GET("/options", h.options)
	api.POST("/ask", h.ask)
	api.POST("/contents", h.acquireContent)
	api.GET("/contents/:id", h.getContent)
	api.DELETE("/contents/:id", h.deleteContent)
	api.POST("/contents/:id/ask", h.askContent)
}

func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handler) options(c *gin.Context) {
	c.JSON(http.StatusOK, h.assistant.Options())
}

func (h *Handler) ask(c *gin.Context) {
	if !h.parseMultipart(c) {
		return
	}
	mode, err := models.ParseMediaType(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": assistant.KindInvalidInput})
		return
	}
	cfg, err := h.formGenerationConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": assistant.KindInvalidInput})
		return
	}
	files, ok := h.formUploads(c)
	if !ok {
		return
	}
	req := assistant.AskRequest{
		Mode:   mode,
		Config: cfg,
		Prompt: c.PostForm("prompt"),
		URL:    c.PostForm("url"),
		Files:  files,
	}
	if err := h.assistant.Check(req.Mode, req.Config, req.Prompt); err != nil {
		writeError(c, err)
		return
	}

	h.runPipeline(c, func(ctx context.Context) {
		stream, ok := newEventStream(c)
		if !ok {
			return
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		if err := stream.send("ack", gin.H{
			"mode":   req.Mode,
			"model":  req.Config.Model,
			"prompt": req.Prompt,
			"url":    req.URL,
			"files":  names,
		}); err != nil {
			return
		}
		answer, err := h.assistant.Ask(ctx, req, stream.send)
		if err != nil {
			_ = stream.send("error", errorPayload(err))
			return
		}
		_ = stream.send("done", gin.H{"answer": answer})
	})
}

func (h *Handler) acquireContent(c *gin.Context) {
	if !h.parseMultipart(c) {
		return
	}
	mode, err := models.ParseMediaType(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": assistant.KindInvalidInput})
		return
	}
	files, ok := h.formUploads(c)
	if !ok {
		return
	}
	req := assistant.AcquireRequest{
		Mode:  mode,
		URL:   c.PostForm("url"),
		Files: files,
	}
	h.runPipeline(c, func(ctx context.Context) {
		content, err := h.assistant.Acquire(ctx, req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, content)
	})
}

func (h *Handler) getContent(c *gin.Context) {
	content, err := h.assistant.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *Handler) deleteContent(c *gin.Context) {
	if err := h.assistant.DropContent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type contentAskRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	TopP        *float64 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
}

func (h *Handler) askContent(c *gin.Context) {
	var req contentAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": assistant.KindInvalidInput})
		return
	}
	content, err := h.assistant.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	cfg := h.assistant.Options().Defaults
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		cfg.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		cfg.MaxTokens = *req.MaxTokens
	}
	if err := h.assistant.Check(content.Mode, cfg, req.Prompt); err != nil {
		writeError(c, err)
		return
	}

	h.runPipeline(c, func(ctx context.Context) {
		stream, ok := newEventStream(c)
		if !ok {
			return
		}
		if err := stream.send("ack", gin.H{
			"content_id": content.ID,
			"mode":       content.Mode,
			"model":      cfg.Model,
			"prompt":     req.Prompt,
		}); err != nil {
			return
		}
		answer, err := h.assistant.AskContent(ctx, content.ID, req.Prompt, cfg, stream.send)
		if err != nil {
			_ = stream.send("error", errorPayload(err))
			return
		}
		_ = stream.send("done", gin.H{"answer": answer})
	})
}

// parseMultipart caps the body at the upload limit and parses the form.
// URL-encoded forms are accepted for requests without files.
func (h *Handler) parseMultipart(c *gin.Context) bool {
	if h.maxUploadBytes > 0 {
		limit := h.maxUploadBytes + formOverhead
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large", "kind": assistant.KindInvalidInput})
			return false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	err := c.Request.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = c.Request.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large", "kind": assistant.KindInvalidInput})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form", "kind": assistant.KindInvalidInput})
		return false
	}
	return true
}

// formUploads collects every "file" part in upload order.
func (h *Handler) formUploads(c *gin.Context) ([]models.Upload, bool) {
	if c.Request.MultipartForm == nil {
		return nil, true
	}
	headers := c.Request.MultipartForm.File["file"]
	uploads := make([]models.Upload, 0, len(headers))
	for _, fh := range headers {
		if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large: " + fh.Filename, "kind": assistant.KindInvalidInput})
			return nil, false
		}
		fh := fh
		uploads = append(uploads, models.Upload{
			Name: filepath.Base(fh.Filename),
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads, true
}

// formGenerationConfig reads the parameter panel fields; missing fields keep their defaults.
func (h *Handler) formGenerationConfig(c *gin.Context) (models.GenerationConfig, error) {
	cfg := h.assistant.Options().Defaults
	if v := strings.TrimSpace(c.PostForm("model")); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(c.PostForm("temperature")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.New("temperature must be a number")
		}
		cfg.Temperature = f
	}
	if v := strings.TrimSpace(c.PostForm("top_p")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.New("top_p must be a number")
		}
		cfg.TopP = f
	}
	if v := strings.TrimSpace(c.PostForm("max_tokens")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.New("max_tokens must be an integer")
		}
		cfg.MaxTokens = n
	}
	return cfg, nil
}

func errorPayload(err error) gin.H {
	return gin.H{"message": err.Error(), "kind": assistant.ErrorKind(err)}
}

func writeError(c *gin.Context, err error) {
	kind := assistant.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case assistant.KindInvalidInput:
		status = http.StatusBadRequest
	case assistant.KindNotFound:
		status = http.StatusNotFound
	case assistant.KindAcquisition:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
