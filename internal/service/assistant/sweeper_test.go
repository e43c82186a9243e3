package assistant

import (
	"context"
	"testing"
	"time"

	"mediachat/internal/models"
)

func TestSweepExpiredAssets(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []models.AssetRecord{
		{Name: "files/old", DisplayName: "old.mp4", Mode: models.MediaVideo, MIMEType: "video/mp4", State: models.AssetStateActive, CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Name: "files/new", DisplayName: "new.mp4", Mode: models.MediaVideo, MIMEType: "video/mp4", State: models.AssetStateActive, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if _, err := env.svc.ledger.Record(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	n, err := env.svc.sweepExpiredAssets(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 || len(env.files.deleted) != 1 || env.files.deleted[0] != "files/old" {
		t.Fatalf("expected only the expired asset swept, n=%d deleted=%v", n, env.files.deleted)
	}
	// a second pass has nothing left to do
	if n, err := env.svc.sweepExpiredAssets(ctx, now); err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}

func TestStartAssetSweeperRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := env.svc.StartAssetSweeper(ctx, "not a schedule"); err == nil {
		t.Fatalf("expected schedule parse error")
	}
	c, err := env.svc.StartAssetSweeper(ctx, "@every 1h")
	if err != nil {
		t.Fatalf("start sweeper: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("expected one scheduled job")
	}
}

func TestStartAssetSweeperNeedsLedger(t *testing.T) {
	svc := &Service{}
	if _, err := svc.StartAssetSweeper(context.Background(), ""); err == nil {
		t.Fatalf("expected error without ledger")
	}
}
