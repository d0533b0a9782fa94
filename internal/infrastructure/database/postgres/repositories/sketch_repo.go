// Package repositories contains the PostgreSQL persistence implementations.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	goerrors "errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
	"github.com/kFady/stereo-site-1/pkg/types/common"
)

const pgUniqueViolation = "23505"

// ─────────────────────────────────────────────────────────────────────────────
// Sketch record
// ─────────────────────────────────────────────────────────────────────────────

// Sketch is a saved drawing: the molecule graph plus a user-chosen name.
// ContentHash is the structural hash of the molecule at save time, used to
// detect whether a loaded sketch still matches a cached analysis.
type Sketch struct {
	ID          common.ID     `json:"id"`
	Name        string        `json:"name"`
	Molecule    chem.Molecule `json:"molecule"`
	ContentHash string        `json:"content_hash"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// ─────────────────────────────────────────────────────────────────────────────
// SketchRepository
// ─────────────────────────────────────────────────────────────────────────────

// SketchRepository persists sketches in PostgreSQL.  The molecule graph is
// stored as a JSONB column; names are unique across the table.
type SketchRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewSketchRepository constructs a ready-to-use SketchRepository.
func NewSketchRepository(db queryExecutor, log logging.Logger) *SketchRepository {
	return &SketchRepository{db: db, logger: log}
}

// Save inserts a new sketch.  A name collision returns ErrCodeSketchNameConflict.
func (r *SketchRepository) Save(ctx context.Context, s *Sketch) error {
	molJSON, err := json.Marshal(s.Molecule)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "sketch: failed to encode molecule")
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sketches (id, name, molecule, content_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, molJSON, s.ContentHash,
	)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeSketchNameConflict, "a sketch with this name already exists").
				WithDetail(s.Name)
		}
		r.logger.Error("SketchRepository.Save failed", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: failed to insert")
	}
	return nil
}

// Update replaces the stored molecule and hash for an existing sketch.
func (r *SketchRepository) Update(ctx context.Context, s *Sketch) error {
	molJSON, err := json.Marshal(s.Molecule)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "sketch: failed to encode molecule")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE sketches
		SET name = $2, molecule = $3, content_hash = $4, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Name, molJSON, s.ContentHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeSketchNameConflict, "a sketch with this name already exists").
				WithDetail(s.Name)
		}
		r.logger.Error("SketchRepository.Update failed", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: failed to update")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeSketchNotFound, "sketch not found").WithDetail(string(s.ID))
	}
	return nil
}

// FindByID loads a single sketch.
func (r *SketchRepository) FindByID(ctx context.Context, id common.ID) (*Sketch, error) {
	return r.scanSketch(r.db.QueryRowContext(ctx, `
		SELECT id, name, molecule, content_hash, created_at, updated_at
		FROM sketches WHERE id = $1`, id))
}

// FindByName loads a sketch by its unique name.
func (r *SketchRepository) FindByName(ctx context.Context, name string) (*Sketch, error) {
	return r.scanSketch(r.db.QueryRowContext(ctx, `
		SELECT id, name, molecule, content_hash, created_at, updated_at
		FROM sketches WHERE name = $1`, name))
}

// List returns a page of sketches ordered by most recently updated, plus the
// total count.
func (r *SketchRepository) List(ctx context.Context, p common.Pagination) ([]*Sketch, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sketches`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: failed to count")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, molecule, content_hash, created_at, updated_at
		FROM sketches
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset(),
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: failed to list")
	}
	defer rows.Close()

	var out []*Sketch
	for rows.Next() {
		s, err := r.scanSketch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: row iteration failed")
	}
	return out, total, nil
}

// Delete removes a sketch.  Deleting an absent sketch returns
// ErrCodeSketchNotFound.
func (r *SketchRepository) Delete(ctx context.Context, id common.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sketches WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: failed to delete")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeSketchNotFound, "sketch not found").WithDetail(string(id))
	}
	return nil
}

func (r *SketchRepository) scanSketch(s scanner) (*Sketch, error) {
	var (
		sk      Sketch
		molJSON []byte
	)
	err := s.Scan(&sk.ID, &sk.Name, &molJSON, &sk.ContentHash, &sk.CreatedAt, &sk.UpdatedAt)
	if goerrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeSketchNotFound, "sketch not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "sketch: scan failed")
	}
	if err := json.Unmarshal(molJSON, &sk.Molecule); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "sketch: failed to decode molecule")
	}
	return &sk, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return goerrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
