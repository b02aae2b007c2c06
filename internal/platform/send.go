package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
	OSAndroid = "android"
)

// Package names of the messaging apps.
const (
	WhatsAppPackage = "com.whatsapp"
	BusinessPackage = "com.whatsapp.w4b"
)

const sendAction = "android.intent.action.SEND"

func PackageFor(src models.Source) string {
	if src == models.Business {
		return BusinessPackage
	}
	return WhatsAppPackage
}

// SendRequest hands a file to another application.
type SendRequest struct {
	Path     string
	MimeType string
	Target   string // package name, empty to let the user pick
}

type Sender interface {
	Send(ctx context.Context, req SendRequest) error
}

// CommandSender sends files by running external commands. On Android it fires a SEND intent
// through the activity manager; elsewhere it opens the file with Command, or with the command
// registered in Apps for the requested target.
type CommandSender struct {
	Command string
	Apps    map[string]string // package name -> command
	GOOS    string
	Logger  *zap.Logger

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

func NewCommandSender(command string, apps map[string]string, logger *zap.Logger) *CommandSender {
	if command == "" {
		command = defaultOpenCommand(runtime.GOOS)
	}

	return &CommandSender{
		Command:  command,
		Apps:     apps,
		GOOS:     runtime.GOOS,
		Logger:   logger,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

func defaultOpenCommand(goos string) string {
	switch goos {
	case OSDarwin:
		return "open"
	case OSWindows:
		return "explorer"
	}
	return "xdg-open"
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v failed: %w: %s", name, err, out)
	}
	return nil
}

func (s *CommandSender) Send(ctx context.Context, req SendRequest) error {
	name, args, err := s.command(ctx, req)
	if err != nil {
		return err
	}

	s.Logger.Debug("Sending file", zap.String("command", name), zap.Strings("args", args))

	return s.run(ctx, name, args...)
}

func (s *CommandSender) command(ctx context.Context, req SendRequest) (string, []string, error) {
	if s.GOOS == OSAndroid {
		args := []string{"start", "-a", sendAction, "-t", req.MimeType, "--eu", "android.intent.extra.STREAM", "file://" + req.Path}
		if req.Target != "" {
			if _, err := s.lookPath("pm"); err == nil {
				if err := s.run(ctx, "pm", "path", req.Target); err != nil {
					return "", nil, fmt.Errorf("%w: %v", models.ErrAppNotInstalled, req.Target)
				}
			}
			args = append(args, "-p", req.Target)
		}
		return "am", args, nil
	}

	if req.Target == "" {
		return s.Command, []string{req.Path}, nil
	}

	command, ok := s.Apps[req.Target]
	if !ok {
		return "", nil, fmt.Errorf("%w: %v", models.ErrAppNotInstalled, req.Target)
	}
	if _, err := s.lookPath(command); err != nil {
		return "", nil, fmt.Errorf("%w: %v (%v)", models.ErrAppNotInstalled, req.Target, err)
	}

	return command, []string{req.Path}, nil
}
