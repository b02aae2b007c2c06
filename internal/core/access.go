package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fedragon/status-saver/internal/db"
	"github.com/fedragon/status-saver/internal/models"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// FolderAccess manages the folder each source was granted and notices when access is lost.
type FolderAccess struct {
	Prefs  db.PreferenceStore
	Logger *zap.Logger
}

// Grant verifies that path is a readable folder and stores it as the handle for src.
func (a *FolderAccess) Grant(_ context.Context, src models.Source, path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	if err := checkReadable(abs); err != nil {
		return "", err
	}

	if err := a.Prefs.SetFolder(src, abs); err != nil {
		return "", err
	}
	if err := a.Prefs.SetGranted(src); err != nil {
		return "", err
	}

	a.Logger.Info("Granted folder access", zap.String("source", string(src)), zap.String("folder", abs))

	return abs, nil
}

// Resolve returns the handle granted for src. When the folder can no longer be read the handle is
// cleared and models.ErrPermissionDenied returned, so that a new grant can be requested.
func (a *FolderAccess) Resolve(_ context.Context, src models.Source) (string, error) {
	handle, ok, err := a.Prefs.Folder(src)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no folder granted for %v", models.ErrPermissionDenied, src)
	}

	if err := checkReadable(handle); err != nil {
		a.Logger.Warn("Lost access to folder", zap.String("source", string(src)), zap.String("folder", handle), zap.Error(err))
		if err := a.Prefs.ClearFolder(src); err != nil {
			return "", err
		}
		return "", err
	}

	return handle, nil
}

func (a *FolderAccess) Revoke(_ context.Context, src models.Source) error {
	return a.Prefs.ClearFolder(src)
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPermissionDenied, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %v is not a folder", models.ErrPermissionDenied, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPermissionDenied, err)
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", models.ErrPermissionDenied, err)
	}

	return nil
}
