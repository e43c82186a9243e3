package models

import "time"

// AssetState is the processing state the provider reports for an uploaded file.
type AssetState string

const (
	AssetStateUnspecified AssetState = "STATE_UNSPECIFIED"
	AssetStateProcessing  AssetState = "PROCESSING"
	AssetStateActive      AssetState = "ACTIVE"
	AssetStateFailed      AssetState = "FAILED"
)

// IsProcessing reports whether the provider is still working on the asset.
func (s AssetState) IsProcessing() bool {
	return s == AssetStateProcessing
}

// IsFailed reports whether the provider gave up on the asset.
func (s AssetState) IsFailed() bool {
	return s == AssetStateFailed
}

// IsReady treats every state other than PROCESSING and FAILED as usable.
func (s AssetState) IsReady() bool {
	return !s.IsProcessing() && !s.IsFailed()
}

// RemoteAsset is a provider-issued handle to an uploaded binary file.
type RemoteAsset struct {
	Name        string     `json:"name"`
	URI         string     `json:"uri"`
	DisplayName string     `json:"display_name"`
	MIMEType    string     `json:"mime_type"`
	SizeBytes   int64      `json:"size_bytes"`
	State       AssetState `json:"state"`
	Error       string     `json:"error,omitempty"`
}

// AssetRecord tracks a remote asset in the local ledger until it is deleted.
type AssetRecord struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Mode        MediaType  `json:"mode"`
	MIMEType    string     `json:"mime_type"`
	Size        int64      `json:"size"`
	State       AssetState `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
