package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sethvargo/go-retry"

	"mediachat/internal/config"
	"mediachat/internal/models"
	"mediachat/internal/service/content"
)

// FileStore is the provider's remote file API.
type FileStore interface {
	Upload(ctx context.Context, r io.Reader, displayName, mimeType string) (*models.RemoteAsset, error)
	GetFile(ctx context.Context, name string) (*models.RemoteAsset, error)
	DeleteFile(ctx context.Context, name string) error
}

var errStillProcessing = errors.New("asset still processing")

type uploader struct {
	files     FileStore
	ledger    *Ledger
	policy    string
	retention time.Duration
	// newBackoff returns the wait schedule between state polls.
	newBackoff func() retry.Backoff
}

func newUploader(files FileStore, ledger *Ledger, cfg config.AssetConfig) *uploader {
	interval := cfg.PollInterval()
	attempts := uint64(cfg.MaxPollAttempts)
	return &uploader{
		files:     files,
		ledger:    ledger,
		policy:    cfg.UnknownMIMEPolicy,
		retention: cfg.Retention(),
		newBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.NewConstant(interval))
		},
	}
}

// resolveMIME maps the upload to a MIME type using the extension table and
// falls back to the configured policy for unknown extensions.
func (u *uploader) resolveMIME(mode models.MediaType, up models.Upload) (string, error) {
	if mt, ok := content.LookupMIME(up.Name); ok {
		return mt, nil
	}
	switch u.policy {
	case config.MIMEPolicyOctetStream:
		return content.OctetStream, nil
	case config.MIMEPolicySniff:
		rc, err := up.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", up.Name, err)
		}
		defer rc.Close()
		detected, err := mimetype.DetectReader(rc)
		if err != nil {
			return "", fmt.Errorf("sniff %s: %w", up.Name, err)
		}
		if !content.MatchesMode(mode, detected.String()) {
			return "", fmt.Errorf("%w: %s looks like %s, not %s", ErrUnsupportedMedia, up.Name, detected.String(), mode)
		}
		return detected.String(), nil
	default:
		return "", fmt.Errorf("%w: no MIME type known for %s", ErrUnsupportedMedia, up.Name)
	}
}

// upload sends the file, records it in the ledger and waits until it leaves
// PROCESSING. The returned asset is set whenever the remote upload succeeded,
// even if an error is returned, so callers can delete it.
func (u *uploader) upload(ctx context.Context, mode models.MediaType, up models.Upload, emit EmitFunc) (*models.RemoteAsset, error) {
	mimeType, err := u.resolveMIME(mode, up)
	if err != nil {
		return nil, err
	}

	rc, err := up.Open()
	if err != nil {
		return nil, stepError(KindUpload, fmt.Errorf("open %s: %w", up.Name, err))
	}
	defer rc.Close()

	emitStatus(emit, models.StageUploading, up.Name)
	asset, err := u.files.Upload(ctx, rc, up.Name, mimeType)
	if err != nil {
		return nil, stepError(KindUpload, err)
	}

	if u.ledger != nil {
		now := time.Now().UTC()
		size := asset.SizeBytes
		if size <= 0 {
			size = up.Size
		}
		if _, err := u.ledger.Record(ctx, models.AssetRecord{
			Name:        asset.Name,
			DisplayName: up.Name,
			Mode:        mode,
			MIMEType:    mimeType,
			Size:        size,
			State:       asset.State,
			CreatedAt:   now,
			ExpiresAt:   now.Add(u.retention),
		}); err != nil {
			log.Printf("asset ledger: %v", err)
		}
	}

	ready, err := u.waitReady(ctx, asset, emit)
	if ready != nil {
		asset = ready
	}
	if u.ledger != nil {
		if lerr := u.ledger.UpdateState(context.WithoutCancel(ctx), asset.Name, asset.State); lerr != nil {
			log.Printf("asset ledger: %v", lerr)
		}
	}
	if err != nil {
		return asset, err
	}
	if asset.State.IsFailed() {
		emitStatus(emit, models.StageFailed, string(asset.State))
		return asset, &AssetFailedError{Name: asset.Name, State: asset.State, Message: asset.Error}
	}
	emitStatus(emit, models.StageReady, asset.Name)
	return asset, nil
}

// waitReady polls the asset while it reports PROCESSING, sleeping one backoff
// step before every poll.
func (u *uploader) waitReady(ctx context.Context, asset *models.RemoteAsset, emit EmitFunc) (*models.RemoteAsset, error) {
	current := asset
	polled := false
	err := retry.Do(ctx, u.newBackoff(), func(ctx context.Context) error {
		if polled {
			next, err := u.files.GetFile(ctx, current.Name)
			if err != nil {
				return stepError(KindUpload, err)
			}
			current = next
		}
		polled = true
		if current.State.IsProcessing() {
			emitStatus(emit, models.StageProcessing, current.Name)
			return retry.RetryableError(errStillProcessing)
		}
		return nil
	})
	if errors.Is(err, errStillProcessing) {
		return current, fmt.Errorf("%w: %s", ErrProcessingTimeout, current.Name)
	}
	return current, err
}

// remove deletes the remote asset and marks the ledger row on success.
func (u *uploader) remove(ctx context.Context, name string) error {
	if err := u.files.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("delete asset %s: %w", name, err)
	}
	if u.ledger != nil {
		if err := u.ledger.MarkDeleted(ctx, name, time.Now()); err != nil {
			log.Printf("asset ledger: %v", err)
		}
	}
	return nil
}
