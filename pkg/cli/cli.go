package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/tenantmap/pkg/cli/config"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

const description = `tenantmap reads CI tenant definitions and prints, for every repository
referenced by a tenant, the tenants running its jobs and the tenants using
its roles.

Tenant definitions come from one of:
  --sources-file  a YAML sequence of tenant records
  --sources-dir   a repository checkout with tenants/<name>/{settings,sources}.yaml
  --sources-zip   a zipball of such a repository

The result is written as JSON with "tenants" and "repos" keys.`

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger
	var logger *slog.Logger

	app := &cli.Command{
		Name:        "tenantmap",
		Usage:       "Map repositories to the CI tenants referencing them",
		Description: description,
		Version:     types.Version,
		Flags:       loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			logger.Debug("Starting tenantmap", slog.String("version", types.Version))
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdParse(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("tenantmap failed",
			slog.String("kind", errorKind(err)),
			slog.Any("error", err),
		)
		return err
	}

	return nil
}

// errorKind names the failure class of err for logs
func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrConfiguration):
		return "configuration"
	case errors.Is(err, types.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, types.ErrCheckout):
		return "checkout"
	default:
		return "internal"
	}
}
