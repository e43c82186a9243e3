package models

import (
	"fmt"
	"strings"
)

// MediaType selects which acquisition path serves a request.
type MediaType string

const (
	MediaPDF   MediaType = "pdf"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaURL   MediaType = "url"
)

// AllMediaTypes lists the modes in the order the page shows them.
func AllMediaTypes() []MediaType {
	return []MediaType{MediaPDF, MediaImage, MediaVideo, MediaAudio, MediaURL}
}

// ParseMediaType accepts the mode name case-insensitively.
func ParseMediaType(raw string) (MediaType, error) {
	mt := MediaType(strings.ToLower(strings.TrimSpace(raw)))
	switch mt {
	case MediaPDF, MediaImage, MediaVideo, MediaAudio, MediaURL:
		return mt, nil
	case "":
		return "", fmt.Errorf("mode is required")
	default:
		return "", fmt.Errorf("unsupported mode: %s", raw)
	}
}

// IsAsset reports whether the mode uploads a binary asset to the provider.
func (m MediaType) IsAsset() bool {
	return m == MediaImage || m == MediaVideo || m == MediaAudio
}

// MultipleFiles reports whether the mode accepts more than one file.
func (m MediaType) MultipleFiles() bool {
	return m == MediaPDF
}

func (m MediaType) String() string {
	return string(m)
}
