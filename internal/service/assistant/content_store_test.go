package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediachat/internal/models"
)

func TestMemoryContentStoreExpires(t *testing.T) {
	store := NewMemoryContentStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, &models.Content{ID: "a", Text: "hello"}, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "a")
	if err != nil || got.Text != "hello" {
		t.Fatalf("load: %+v %v", got, err)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	got.Text = "changed"
	if again, _ := store.Load(ctx, "a"); again.Text != "hello" {
		t.Fatalf("stored content must not be shared with callers")
	}

	now = now.Add(time.Minute)
	if _, err := store.Load(ctx, "a"); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}
