package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fedragon/status-saver/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Delete removes the row and its file on behalf of owner. Rows that do not exist are considered
// deleted already. Rows owned by somebody else require a grant obtained through Confirm, otherwise
// models.ErrConfirmationRequired is returned.
func (x *Index) Delete(ctx context.Context, id string, owner string) error {
	tx, err := x.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	e, err := scan(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM media WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if e.Owner != owner {
		var granted int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM delete_grants WHERE id = ? AND owner = ?`, id, owner).Scan(&granted)
		if err != nil {
			return err
		}
		if granted == 0 {
			return fmt.Errorf("%w: %v is owned by %v", models.ErrConfirmationRequired, e.DisplayName, e.Owner)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM delete_grants WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM confirmations WHERE id = ?`, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	x.logger.Debug("Deleted entry", zap.String("id", id), zap.String("path", e.DataPath))

	return removeFile(e.DataPath)
}

// RequestConfirmation records that owner asked to delete a row it does not own and returns the
// handle to present to the user.
func (x *Index) RequestConfirmation(ctx context.Context, id string, owner string) (string, error) {
	handle := uuid.NewString()
	_, err := x.conn.ExecContext(ctx, `INSERT INTO confirmations (handle, id, owner) VALUES (?, ?, ?)`, handle, id, owner)
	if err != nil {
		return "", err
	}

	return handle, nil
}

// Confirm turns the confirmation request behind handle into a delete grant and returns the id of
// the row it applies to.
func (x *Index) Confirm(ctx context.Context, handle string) (string, error) {
	tx, err := x.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var id, owner string
	err = tx.QueryRowContext(ctx, `SELECT id, owner FROM confirmations WHERE handle = ?`, handle).Scan(&id, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: confirmation %v", models.ErrNotFound, handle)
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO delete_grants (id, owner) VALUES (?, ?)`, id, owner); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM confirmations WHERE handle = ?`, handle); err != nil {
		return "", err
	}

	return id, tx.Commit()
}
