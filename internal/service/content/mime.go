package content

import (
	"path/filepath"
	"strings"

	"mediachat/internal/models"
)

// OctetStream is the generic fallback type for unrecognised extensions.
const OctetStream = "application/octet-stream"

var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}

var acceptByMode = map[models.MediaType][]string{
	models.MediaPDF:   {".pdf"},
	models.MediaImage: {".jpg", ".jpeg", ".png"},
	models.MediaVideo: {".mp4", ".mov", ".avi"},
	models.MediaAudio: {".mp3", ".wav", ".ogg"},
}

// LookupMIME maps a file name to its MIME type using the fixed extension table.
// The boolean is false when the extension is not in the table.
func LookupMIME(name string) (string, bool) {
	mt, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]
	return mt, ok
}

// AcceptedExtensions returns the file extensions a mode's picker offers.
func AcceptedExtensions(mode models.MediaType) []string {
	exts := acceptByMode[mode]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// AcceptsExtension reports whether name carries one of the mode's extensions.
func AcceptsExtension(mode models.MediaType, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range acceptByMode[mode] {
		if ext == allowed {
			return true
		}
	}
	return false
}

// MatchesMode reports whether a MIME type belongs to the asset mode's family.
func MatchesMode(mode models.MediaType, mimeType string) bool {
	return strings.HasPrefix(mimeType, string(mode)+"/")
}
