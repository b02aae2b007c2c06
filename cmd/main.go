package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fedragon/status-saver/internal"
	"github.com/fedragon/status-saver/internal/config"
	"github.com/fedragon/status-saver/internal/core"
	"github.com/fedragon/status-saver/internal/models"

	"github.com/disintegration/imaging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var sourceFlag = &cli.StringFlag{
	Name:    "source",
	Aliases: []string{"s"},
	Usage:   "messaging app folder to use: whatsapp or business",
	Value:   string(models.WhatsApp),
}

func main() {
	app := &cli.App{
		Name:  "status-saver",
		Usage: "Browse status media and keep the ones you like",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "db", Usage: "preferences database", EnvVars: []string{"STATUS_SAVER_DB"}},
			&cli.StringFlag{Name: "index", Usage: "media index database", EnvVars: []string{"STATUS_SAVER_INDEX"}},
			&cli.StringFlag{Name: "library", Usage: "root of the media library", EnvVars: []string{"STATUS_SAVER_LIBRARY"}},
		},
		Commands: []*cli.Command{
			{
				Name:      "grant",
				Usage:     "grant access to the folder of a messaging app",
				ArgsUsage: "<folder>",
				Flags:     []cli.Flag{sourceFlag},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					src, err := models.ParseSource(c.String("source"))
					if err != nil {
						return err
					}
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one folder")
					}

					handle, err := r.Access.Grant(c.Context, src, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(handle)
					return nil
				}),
			},
			{
				Name:  "revoke",
				Usage: "forget the folder of a messaging app",
				Flags: []cli.Flag{sourceFlag},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					src, err := models.ParseSource(c.String("source"))
					if err != nil {
						return err
					}
					return r.Access.Revoke(c.Context, src)
				}),
			},
			{
				Name:  "list",
				Usage: "list the current statuses, newest first",
				Flags: []cli.Flag{
					sourceFlag,
					&cli.BoolFlag{Name: "check", Usage: "mark statuses already saved to the library"},
				},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					src, err := models.ParseSource(c.String("source"))
					if err != nil {
						return err
					}

					media, err := r.Browser.Statuses(c.Context, src, true)
					if err != nil {
						return err
					}

					for _, m := range media {
						mark := ""
						if c.Bool("check") {
							if saved, err := r.Actions.IsSaved(c.Context, m); err == nil && saved {
								mark = "*"
							}
						}
						printMedia(m, mark)
					}
					return nil
				}),
			},
			{
				Name:  "thumbs",
				Usage: "write the thumbnails of the current statuses, or of saved media, to a folder",
				Flags: []cli.Flag{
					sourceFlag,
					&cli.BoolFlag{Name: "saved", Usage: "use saved media instead of statuses"},
					&cli.StringFlag{Name: "out", Usage: "destination folder", Value: "thumbnails"},
				},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					media, err := listing(c, r)
					if err != nil {
						return err
					}

					out := c.String("out")
					if err := os.MkdirAll(out, 0o755); err != nil {
						return err
					}

					r.Browser.Preload(c.Context, media)

					for _, m := range media {
						img, ok := r.Browser.Thumbnail(c.Context, m)
						if !ok {
							continue
						}

						name := strings.TrimSuffix(m.DisplayName, filepath.Ext(m.DisplayName)) + ".jpg"
						if err := imaging.Save(img, filepath.Join(out, name)); err != nil {
							return err
						}
					}
					return nil
				}),
			},
			{
				Name:      "save",
				Usage:     "copy statuses to the library",
				ArgsUsage: "<name>...",
				Flags: []cli.Flag{
					sourceFlag,
					&cli.BoolFlag{Name: "all", Usage: "save every current status"},
				},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					src, err := models.ParseSource(c.String("source"))
					if err != nil {
						return err
					}

					if c.Bool("all") {
						media, err := r.Browser.Statuses(c.Context, src, true)
						if err != nil {
							return err
						}
						fmt.Printf("Saved %d of %d\n", r.Actions.SaveAll(c.Context, media), len(media))
						return nil
					}

					for _, name := range c.Args().Slice() {
						m, err := r.FindStatus(c.Context, src, name)
						if err != nil {
							return err
						}
						saved, err := r.Actions.Save(c.Context, m)
						if err != nil {
							return err
						}
						printMedia(saved, "")
					}
					return nil
				}),
			},
			{
				Name:  "saved",
				Usage: "list saved media, newest first",
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					media, err := r.Browser.Saved(c.Context)
					if err != nil {
						return err
					}
					for _, m := range media {
						printMedia(m, "")
					}
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete saved media",
				ArgsUsage: "<name>",
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					m, err := r.FindSaved(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return deleteMedia(c.Context, r, m)
				}),
			},
			{
				Name:      "confirm",
				Usage:     "approve a pending delete and carry it out",
				ArgsUsage: "<handle>",
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					m, err := r.Actions.Confirm(c.Context, core.ConfirmationHandle(c.Args().First()))
					if err != nil {
						return err
					}
					return deleteMedia(c.Context, r, m)
				}),
			},
			{
				Name:      "share",
				Usage:     "share a status, or saved media",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					sourceFlag,
					&cli.BoolFlag{Name: "saved", Usage: "share saved media instead of a status"},
				},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					m, err := pick(c, r)
					if err != nil {
						return err
					}
					return r.Actions.Share(c.Context, m)
				}),
			},
			{
				Name:      "repost",
				Usage:     "send a status, or saved media, back to the messaging app",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					sourceFlag,
					&cli.BoolFlag{Name: "saved", Usage: "repost saved media instead of a status"},
				},
				Action: withRunner(func(c *cli.Context, r *internal.Runner) error {
					src, err := models.ParseSource(c.String("source"))
					if err != nil {
						return err
					}
					m, err := pick(c, r)
					if err != nil {
						return err
					}
					return r.Actions.Repost(c.Context, m, src)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

// withRunner builds the pipeline for the duration of a command and turns failures into notices.
func withRunner(action func(*cli.Context, *internal.Runner) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		logger, err := newLogger(c.Bool("debug"))
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for flag, target := range map[string]*string{"db": &cfg.DBPath, "index": &cfg.IndexPath, "library": &cfg.LibraryRoot} {
			if c.IsSet(flag) {
				*target = c.String(flag)
			}
		}
		if err := cfg.Expand(); err != nil {
			return err
		}

		r, err := internal.NewRunner(c.Context, logger, cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		if err := action(c, r); err != nil {
			logger.Error("Command failed", zap.String("command", c.Command.Name), zap.Error(err))
			return cli.Exit(notice(err), 1)
		}
		return nil
	}
}

func notice(err error) string {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		return "Folder access is missing: run grant again"
	case errors.Is(err, models.ErrNotFound):
		return "Nothing found: " + err.Error()
	case errors.Is(err, models.ErrAppNotInstalled):
		return "The messaging app is not installed"
	}
	return err.Error()
}

func listing(c *cli.Context, r *internal.Runner) ([]models.Media, error) {
	if c.Bool("saved") {
		return r.Browser.Saved(c.Context)
	}

	src, err := models.ParseSource(c.String("source"))
	if err != nil {
		return nil, err
	}
	return r.Browser.Statuses(c.Context, src, true)
}

func pick(c *cli.Context, r *internal.Runner) (models.Media, error) {
	name := c.Args().First()
	if c.Bool("saved") {
		return r.FindSaved(c.Context, name)
	}

	src, err := models.ParseSource(c.String("source"))
	if err != nil {
		return models.Media{}, err
	}
	return r.FindStatus(c.Context, src, name)
}

func deleteMedia(ctx context.Context, r *internal.Runner, m models.Media) error {
	res, err := r.Actions.Delete(ctx, m)
	if err != nil {
		return err
	}

	switch res.Status {
	case core.DeleteNeedsConfirmation:
		fmt.Printf("%v belongs to another app, approve with: status-saver confirm %v\n", m.DisplayName, res.Confirmation)
	case core.DeleteCompleted:
		r.Browser.Forget(m.Location)
		fmt.Printf("Deleted %v\n", m.DisplayName)
	}
	return nil
}

func printMedia(m models.Media, mark string) {
	kind := "image"
	if m.IsVideo {
		kind = "video"
	}
	fmt.Printf("%1s %-5s %s\t%s\n", mark, kind, m.DisplayName, m.Location)
}
