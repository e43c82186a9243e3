package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediachat/internal/models"
)

// Ledger keeps track of uploaded assets until they are deleted remotely.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// dbTime normalises timestamps so sqlite's text comparison orders them correctly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Record stores a freshly uploaded asset.
func (l *Ledger) Record(ctx context.Context, rec models.AssetRecord) (*models.AssetRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt, rec.ExpiresAt = dbTime(rec.CreatedAt), dbTime(rec.ExpiresAt)
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO remote_assets (name, display_name, mode, mime_type, size, state, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.DisplayName, string(rec.Mode), rec.MIMEType, rec.Size, string(rec.State),
		rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record asset %s: %w", rec.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("asset id: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

func (l *Ledger) UpdateState(ctx context.Context, name string, state models.AssetState) error {
	_, err := l.db.ExecContext(ctx, `UPDATE remote_assets SET state = ? WHERE name = ?`, string(state), name)
	if err != nil {
		return fmt.Errorf("update asset %s state: %w", name, err)
	}
	return nil
}

func (l *Ledger) MarkDeleted(ctx context.Context, name string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `UPDATE remote_assets SET deleted_at = ? WHERE name = ? AND deleted_at IS NULL`, dbTime(at), name)
	if err != nil {
		return fmt.Errorf("mark asset %s deleted: %w", name, err)
	}
	return nil
}

// Get returns the ledger row for an asset name.
func (l *Ledger) Get(ctx context.Context, name string) (*models.AssetRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, mode, mime_type, size, state, created_at, expires_at, deleted_at
		FROM remote_assets WHERE name = ?`, name)
	rec, err := scanAssetRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s not recorded", name)
	}
	return rec, err
}

// Expired lists assets past their expiry that were never deleted.
func (l *Ledger) Expired(ctx context.Context, now time.Time) ([]models.AssetRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, display_name, mode, mime_type, size, state, created_at, expires_at, deleted_at
		FROM remote_assets
		WHERE deleted_at IS NULL AND expires_at <= ?
		ORDER BY expires_at`, dbTime(now))
	if err != nil {
		return nil, fmt.Errorf("query expired assets: %w", err)
	}
	defer rows.Close()

	var out []models.AssetRecord
	for rows.Next() {
		rec, err := scanAssetRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssetRecord(row rowScanner) (*models.AssetRecord, error) {
	var (
		rec       models.AssetRecord
		mode      string
		state     string
		deletedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.DisplayName, &mode, &rec.MIMEType, &rec.Size, &state,
		&rec.CreatedAt, &rec.ExpiresAt, &deletedAt); err != nil {
		return nil, err
	}
	rec.Mode = models.MediaType(mode)
	rec.State = models.AssetState(state)
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	return &rec, nil
}
