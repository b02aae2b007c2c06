package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/fedragon/status-saver/internal/index"
	"github.com/fedragon/status-saver/internal/models"
	"github.com/fedragon/status-saver/internal/platform"

	"go.uber.org/zap"
)

// ActionService copies, deletes and shares media on behalf of Owner.
type ActionService struct {
	Index      *index.Index
	Resolver   *Resolver
	Sender     platform.Sender
	Library    Library
	Owner      string
	NumWorkers int
	Logger     *zap.Logger
}

type DeleteStatus int

const (
	DeleteCompleted DeleteStatus = iota
	DeleteNeedsConfirmation
	DeleteFailed
)

func (s DeleteStatus) String() string {
	switch s {
	case DeleteCompleted:
		return "completed"
	case DeleteNeedsConfirmation:
		return "needs confirmation"
	}
	return "failed"
}

// ConfirmationHandle identifies a pending delete that the user has to approve.
type ConfirmationHandle string

type DeleteResult struct {
	Status       DeleteStatus
	Confirmation ConfirmationHandle // set when Status is DeleteNeedsConfirmation
}

// Delete removes a library item. Items that no longer exist count as deleted. Items owned by
// another app are not touched: a confirmation handle is returned instead, and once the user has
// approved it through Confirm the caller may issue Delete again.
func (s *ActionService) Delete(ctx context.Context, m models.Media) (DeleteResult, error) {
	_, id, err := m.Location.MediaID()
	if err != nil {
		return DeleteResult{Status: DeleteFailed}, fmt.Errorf("unable to delete %v: %w", m.DisplayName, err)
	}

	err = s.Index.Delete(ctx, id, s.Owner)
	if errors.Is(err, models.ErrConfirmationRequired) {
		handle, err := s.Index.RequestConfirmation(ctx, id, s.Owner)
		if err != nil {
			return DeleteResult{Status: DeleteFailed}, err
		}

		s.Logger.Info("Delete needs user confirmation", zap.String("media", m.DisplayName), zap.String("handle", handle))
		return DeleteResult{Status: DeleteNeedsConfirmation, Confirmation: ConfirmationHandle(handle)}, nil
	}
	if err != nil {
		return DeleteResult{Status: DeleteFailed}, fmt.Errorf("unable to delete %v: %w", m.DisplayName, err)
	}

	s.Logger.Info("Deleted media", zap.String("media", m.DisplayName))

	return DeleteResult{Status: DeleteCompleted}, nil
}

// Confirm records the user's approval of a pending delete and returns the item it applies to.
func (s *ActionService) Confirm(ctx context.Context, handle ConfirmationHandle) (models.Media, error) {
	id, err := s.Index.Confirm(ctx, string(handle))
	if err != nil {
		return models.Media{}, err
	}

	e, err := s.Index.Get(ctx, id)
	if err != nil {
		return models.Media{}, err
	}

	return e.Media(), nil
}

// Share hands m to whichever app the user picks.
func (s *ActionService) Share(ctx context.Context, m models.Media) error {
	return s.send(ctx, m, "")
}

// Repost hands m straight to the messaging app of src.
func (s *ActionService) Repost(ctx context.Context, m models.Media, src models.Source) error {
	return s.send(ctx, m, platform.PackageFor(src))
}

func (s *ActionService) send(ctx context.Context, m models.Media, target string) error {
	path, err := s.Resolver.LocalPath(ctx, m.Location)
	if err != nil {
		return err
	}

	return s.Sender.Send(ctx, platform.SendRequest{
		Path:     path,
		MimeType: m.MimeType(),
		Target:   target,
	})
}
