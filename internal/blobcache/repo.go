// Package blobcache implements C1: one narrow table per platform mapping a
// native media id to the CDN file handle it was uploaded as.
package blobcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/platform"
)

// uniqueViolation is the Postgres SQLSTATE for a unique-constraint conflict.
const uniqueViolation = "23505"

// querier is the subset of *pgxpool.Pool (and *pgx.Conn) that Repo needs.
// Depending on this narrow interface instead of a concrete pool lets tests
// substitute a fake without a real database.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is the blob-cache repository for one platform's table.
type Repo struct {
	db       querier
	platform platform.Platform
	table    string
	log      *logrus.Entry
}

// New constructs a Repo bound to one platform's table.
func New(db querier, p platform.Platform, log *logrus.Entry) *Repo {
	return &Repo{
		db:       db,
		platform: p,
		table:    p.TableName(),
		log:      log.WithField("platform", p.String()),
	}
}

// EnsureSchema creates the platform's table if it does not already exist.
// Table names are built from the closed Platform enum, never user input, so
// this is not susceptible to SQL injection despite the string concatenation.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		media_id      BIGINT PRIMARY KEY,
		cdn_file_id   TEXT NOT NULL,
		cdn_file_kind SMALLINT NOT NULL
	)`, r.table)
	if _, err := r.db.Exec(ctx, stmt); err != nil {
		return &apperr.DatabaseError{Op: "ensure_schema", Err: err}
	}
	return nil
}

// Get is a point lookup; ok is false when no row exists for mediaID.
func (r *Repo) Get(ctx context.Context, mediaID int64) (meta platform.CdnFileMeta, ok bool, err error) {
	stmt := fmt.Sprintf(`SELECT cdn_file_id, cdn_file_kind FROM %s WHERE media_id = $1`, r.table)
	var id string
	var kind int16
	err = r.db.QueryRow(ctx, stmt, mediaID).Scan(&id, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return platform.CdnFileMeta{}, false, nil
	}
	if err != nil {
		return platform.CdnFileMeta{}, false, &apperr.DatabaseError{Op: "get", Err: err}
	}
	k, validKind := platform.CdnFileKindFromI16(kind)
	if !validKind {
		return platform.CdnFileMeta{}, false, &apperr.DatabaseError{
			Op:  "get",
			Err: fmt.Errorf("row for media_id=%d has invalid cdn_file_kind=%d", mediaID, kind),
		}
	}
	return platform.CdnFileMeta{ID: id, Kind: k}, true, nil
}

// Set is insert-only (I3): a unique violation means another writer already
// installed a value for mediaID, which is a benign loser-of-race, not a
// failure. Callers that need the winning value call Get afterward.
func (r *Repo) Set(ctx context.Context, mediaID int64, meta platform.CdnFileMeta) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (media_id, cdn_file_id, cdn_file_kind) VALUES ($1, $2, $3)`, r.table)
	_, err := r.db.Exec(ctx, stmt, mediaID, meta.ID, int16(meta.Kind))
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		r.log.WithField("media_id", mediaID).Debug("blobcache: benign insert conflict, row already present")
		return errdefs.ErrAlreadyExists(err)
	}
	return &apperr.DatabaseError{Op: "set", Err: err}
}
