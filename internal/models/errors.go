package models

import "errors"

var (
	// ErrPermissionDenied means the granted folder is gone or no longer readable.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means the item vanished between listing and access.
	ErrNotFound = errors.New("not found")
	// ErrConfirmationRequired means the item is owned by another app and the user must consent.
	ErrConfirmationRequired = errors.New("user confirmation required")
	// ErrAppNotInstalled means the target app of a repost is absent.
	ErrAppNotInstalled = errors.New("app not installed")
	ErrUnsupported     = errors.New("unsupported")
)
