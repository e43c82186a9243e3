package assistant

import (
	"errors"
	"testing"
	"time"

	"mediachat/internal/config"
	"mediachat/internal/models"
)

func TestResolveMIMEPolicies(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	u := &uploader{policy: config.MIMEPolicyReject}

	if got, err := u.resolveMIME(models.MediaVideo, models.UploadFromBytes("CLIP.MOV", nil)); err != nil || got != "video/quicktime" {
		t.Fatalf("table lookup: %q %v", got, err)
	}
	if _, err := u.resolveMIME(models.MediaImage, models.UploadFromBytes("pic.webp", png)); !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("reject policy should refuse unknown extension, got %v", err)
	}

	u.policy = config.MIMEPolicyOctetStream
	if got, err := u.resolveMIME(models.MediaImage, models.UploadFromBytes("pic.webp", png)); err != nil || got != "application/octet-stream" {
		t.Fatalf("octet-stream policy: %q %v", got, err)
	}

	u.policy = config.MIMEPolicySniff
	if got, err := u.resolveMIME(models.MediaImage, models.UploadFromBytes("pic.bin", png)); err != nil || got != "image/png" {
		t.Fatalf("sniff policy: %q %v", got, err)
	}
	if _, err := u.resolveMIME(models.MediaAudio, models.UploadFromBytes("pic.bin", png)); !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("sniffed type from another mode should be refused, got %v", err)
	}
}

func TestDefaultPollSchedule(t *testing.T) {
	cfg := config.Default().Asset
	backoff := newUploader(nil, nil, cfg).newBackoff()
	for i := 0; i < cfg.MaxPollAttempts; i++ {
		delay, stop := backoff.Next()
		if stop || delay != 10*time.Second {
			t.Fatalf("poll %d: delay=%s stop=%v", i+1, delay, stop)
		}
	}
	if _, stop := backoff.Next(); !stop {
		t.Fatalf("expected polling to stop after %d attempts", cfg.MaxPollAttempts)
	}
}
