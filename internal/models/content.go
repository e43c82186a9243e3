package models

import (
	"bytes"
	"io"
	"time"
)

// Stage names a step of the per-request state machine.
type Stage string

const (
	StageNoFile          Stage = "NO_FILE"
	StageUploading       Stage = "UPLOADING"
	StageProcessing      Stage = "PROCESSING"
	StageReady           Stage = "READY"
	StageFailed          Stage = "FAILED"
	StageAssetDeleted    Stage = "ASSET_DELETED"
	StageNoInput         Stage = "NO_INPUT"
	StageContentAcquired Stage = "CONTENT_ACQUIRED"
	StagePromptEntered   Stage = "PROMPT_ENTERED"
	StageInference       Stage = "INFERENCE_CALLED"
	StageRendered        Stage = "RESULT_RENDERED"
)

// Upload is one user-supplied file of a request.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadFromBytes wraps in-memory data as an Upload.
func UploadFromBytes(name string, data []byte) Upload {
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Content is text acquired from PDFs or a web page.
type Content struct {
	ID        string    `json:"id"`
	Mode      MediaType `json:"mode"`
	Text      string    `json:"text"`
	Sources   []string  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is filled in by the content store when the entry has a TTL.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Answer is the rendered result of one prompt submission.
type Answer struct {
	Mode         MediaType `json:"mode"`
	Model        string    `json:"model"`
	Text         string    `json:"text"`
	AssetName    string    `json:"asset_name,omitempty"`
	AssetDeleted bool      `json:"asset_deleted,omitempty"`
	CleanupError string    `json:"cleanup_error,omitempty"`
}
