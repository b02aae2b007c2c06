package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fedragon/status-saver/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one row of the index.
type Entry struct {
	ID           string
	Collection   string
	DisplayName  string
	MimeType     string
	RelativePath string
	DataPath     string
	Size         int64
	Checksum     string
	Owner        string
	Pending      bool
	DateAdded    int64 // milliseconds since epoch
	DateModified int64 // milliseconds since epoch
}

func (e Entry) Location() models.Location {
	return models.MediaLocation(e.Collection, e.ID)
}

func (e Entry) Media() models.Media {
	return models.Media{
		Location:     e.Location(),
		IsVideo:      strings.HasPrefix(e.MimeType, "video"),
		DisplayName:  e.DisplayName,
		LastModified: e.DateModified,
	}
}

// NewEntry describes a row to be inserted.
type NewEntry struct {
	Collection   string
	DisplayName  string
	MimeType     string
	RelativePath string
	Owner        string
}

// Filter selects rows in Query. Empty slices match everything.
type Filter struct {
	Collections    []string
	RelativePaths  []string // matches the folder itself and any sub-folder
	IncludePending bool
}

const columns = `id, collection, display_name, mime_type, relative_path, data_path, size, checksum, owner, is_pending, date_added, date_modified`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Entry, error) {
	var (
		e       Entry
		pending int
	)
	err := s.Scan(&e.ID, &e.Collection, &e.DisplayName, &e.MimeType, &e.RelativePath, &e.DataPath,
		&e.Size, &e.Checksum, &e.Owner, &pending, &e.DateAdded, &e.DateModified)
	e.Pending = pending != 0

	return e, err
}

// Insert creates a pending row and reserves a unique file name for it under its relative path.
func (x *Index) Insert(ctx context.Context, n NewEntry) (Entry, error) {
	if n.Collection != Images && n.Collection != Videos {
		return Entry{}, fmt.Errorf("%w: collection %q", models.ErrUnsupported, n.Collection)
	}

	dir := filepath.Join(x.root, filepath.FromSlash(n.RelativePath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("unable to create %v: %w", dir, err)
	}

	tx, err := x.conn.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	name, err := uniqueName(ctx, tx, dir, n.RelativePath, n.DisplayName)
	if err != nil {
		return Entry{}, err
	}

	now := time.Now().UnixMilli()
	e := Entry{
		ID:           uuid.NewString(),
		Collection:   n.Collection,
		DisplayName:  name,
		MimeType:     n.MimeType,
		RelativePath: n.RelativePath,
		DataPath:     filepath.Join(dir, name),
		Owner:        n.Owner,
		Pending:      true,
		DateAdded:    now,
		DateModified: now,
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO media (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, 0, '', ?, 1, ?, ?)`,
		e.ID, e.Collection, e.DisplayName, e.MimeType, e.RelativePath, e.DataPath, e.Owner, e.DateAdded, e.DateModified)
	if err != nil {
		return Entry{}, fmt.Errorf("unable to insert %v: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, err
	}

	x.logger.Debug("Inserted pending entry", zap.String("id", e.ID), zap.String("path", e.DataPath))

	return e, nil
}

// uniqueName returns displayName, or "name (n).ext" when a row or a file already uses it.
func uniqueName(ctx context.Context, tx *sql.Tx, dir, relativePath, displayName string) (string, error) {
	ext := filepath.Ext(displayName)
	base := strings.TrimSuffix(displayName, ext)

	for i := 0; ; i++ {
		candidate := displayName
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}

		var count int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM media WHERE relative_path = ? AND display_name = ?`,
			relativePath, candidate).Scan(&count)
		if err != nil {
			return "", err
		}
		if count > 0 {
			continue
		}

		if _, err := os.Stat(filepath.Join(dir, candidate)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}

		return candidate, nil
	}
}

// Completion carries what is known about a row once its content has been written.
type Completion struct {
	Size     int64
	Checksum string
	Modified time.Time
}

// Finalize clears the pending flag, making the row visible to queries.
func (x *Index) Finalize(ctx context.Context, id string, c Completion) error {
	res, err := x.conn.ExecContext(ctx,
		`UPDATE media SET is_pending = 0, size = ?, checksum = ?, date_modified = ? WHERE id = ?`,
		c.Size, c.Checksum, c.Modified.UnixMilli(), id)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: entry %v", models.ErrNotFound, id)
	}

	return nil
}

// Abort drops a row together with whatever content was written for it.
func (x *Index) Abort(ctx context.Context, id string) error {
	e, err := x.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := x.conn.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id); err != nil {
		return err
	}

	x.logger.Debug("Aborted entry", zap.String("id", id), zap.String("path", e.DataPath))

	return removeFile(e.DataPath)
}

func (x *Index) Get(ctx context.Context, id string) (Entry, error) {
	row := x.conn.QueryRowContext(ctx, `SELECT `+columns+` FROM media WHERE id = ?`, id)

	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: entry %v", models.ErrNotFound, id)
	}

	return e, err
}

// Query returns the rows matching f, most recently modified first.
func (x *Index) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if !f.IncludePending {
		clauses = append(clauses, "is_pending = 0")
	}

	if len(f.Collections) > 0 {
		placeholders := make([]string, len(f.Collections))
		for i, c := range f.Collections {
			placeholders[i] = "?"
			args = append(args, c)
		}
		clauses = append(clauses, "collection IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(f.RelativePaths) > 0 {
		var paths []string
		for _, p := range f.RelativePaths {
			paths = append(paths, `(relative_path = ? OR relative_path LIKE ? ESCAPE '\')`)
			args = append(args, p, escapeLike(p)+"/%")
		}
		clauses = append(clauses, "("+strings.Join(paths, " OR ")+")")
	}

	query := `SELECT ` + columns + ` FROM media`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date_modified DESC, display_name ASC"

	rows, err := x.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// FindByChecksum returns a visible row whose content has the given checksum.
func (x *Index) FindByChecksum(ctx context.Context, checksum string) (Entry, bool, error) {
	row := x.conn.QueryRowContext(ctx,
		`SELECT `+columns+` FROM media WHERE checksum = ? AND is_pending = 0 ORDER BY date_modified DESC LIMIT 1`, checksum)

	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	return e, true, nil
}

// Open returns a reader over the content of a media location.
func (x *Index) Open(ctx context.Context, loc models.Location) (io.ReadCloser, error) {
	_, id, err := loc.MediaID()
	if err != nil {
		return nil, err
	}

	e, err := x.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(e.DataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}

	return f, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SweepPending aborts pending rows added before the cutoff, e.g. left behind by an interrupted copy.
func (x *Index) SweepPending(ctx context.Context, before time.Time) (int, error) {
	entries, err := x.Query(ctx, Filter{IncludePending: true})
	if err != nil {
		return 0, err
	}

	var swept int
	for _, e := range entries {
		if !e.Pending || e.DateAdded >= before.UnixMilli() {
			continue
		}
		if err := x.Abort(ctx, e.ID); err != nil {
			return swept, err
		}
		swept++
	}

	return swept, nil
}
