package content

import (
	"testing"

	"mediachat/internal/models"
)

func TestLookupMIMEFixedTable(t *testing.T) {
	want := map[string]string{
		"photo.jpg":  "image/jpeg",
		"photo.jpeg": "image/jpeg",
		"shot.png":   "image/png",
		"clip.mp4":   "video/mp4",
		"clip.mov":   "video/quicktime",
		"clip.avi":   "video/x-msvideo",
		"song.mp3":   "audio/mpeg",
		"song.wav":   "audio/wav",
		"song.ogg":   "audio/ogg",
		"UPPER.JPG":  "image/jpeg",
	}
	for name, mt := range want {
		got, ok := LookupMIME(name)
		if !ok || got != mt {
			t.Fatalf("LookupMIME(%q) = %q, %v; want %q", name, got, ok, mt)
		}
	}
}

func TestLookupMIMEUnknownIsUnset(t *testing.T) {
	for _, name := range []string{"doc.pdf", "anim.gif", "noext", "archive.tar.gz", ".hidden", ""} {
		got, ok := LookupMIME(name)
		if ok || got != "" {
			t.Fatalf("LookupMIME(%q) = %q, %v; want unset", name, got, ok)
		}
	}
}

func TestAcceptsExtensionPerMode(t *testing.T) {
	if !AcceptsExtension(models.MediaPDF, "report.PDF") {
		t.Fatalf("pdf mode should accept .PDF")
	}
	if AcceptsExtension(models.MediaImage, "clip.mp4") {
		t.Fatalf("image mode must reject video files")
	}
	if !AcceptsExtension(models.MediaAudio, "voice.ogg") {
		t.Fatalf("audio mode should accept .ogg")
	}
	if AcceptsExtension(models.MediaURL, "page.html") {
		t.Fatalf("url mode takes no files")
	}
	exts := AcceptedExtensions(models.MediaVideo)
	exts[0] = ".mutated"
	if AcceptedExtensions(models.MediaVideo)[0] != ".mp4" {
		t.Fatalf("AcceptedExtensions must return a copy")
	}
}

func TestMatchesMode(t *testing.T) {
	if !MatchesMode(models.MediaVideo, "video/webm") {
		t.Fatalf("video/webm belongs to video mode")
	}
	if MatchesMode(models.MediaImage, "audio/mpeg") {
		t.Fatalf("audio type must not match image mode")
	}
}
