package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/cli/config"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/infra/checkout"
	"github.com/m-mizutani/tenantmap/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type repoOutput struct {
	Jobs  []string `json:"jobs"`
	Roles []string `json:"roles"`
}

type parseOutput struct {
	Tenants []*model.Tenant       `json:"tenants"`
	Repos   map[string]repoOutput `json:"repos"`
}

func cmdParse() *cli.Command {
	var (
		sourcesCfg config.Sources
		outputCfg  config.Output
	)

	flags := append(sourcesCfg.Flags(), outputCfg.Flags()...)

	return &cli.Command{
		Name:    "parse",
		Aliases: []string{"p"},
		Usage:   "Parse tenant sources and print the repository to tenant map as JSON",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := sourcesCfg.Validate(); err != nil {
				return err
			}
			scrapeTime, err := sourcesCfg.Time(time.Now().UTC())
			if err != nil {
				return err
			}

			opt, err := sourcesOption(&sourcesCfg)
			if err != nil {
				return err
			}

			parser, err := usecase.NewTenantParser(ctx, scrapeTime, opt)
			if err != nil {
				return goerr.Wrap(err, "failed to load tenant sources")
			}

			repoMap, tenants, err := parser.Parse(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to parse tenant sources")
			}

			logger.Info("Parsed tenant sources",
				slog.Int("tenants", len(tenants)),
				slog.Int("repos", len(repoMap)),
				slog.Time("scrape_time", scrapeTime),
			)

			data, err := json.MarshalIndent(newParseOutput(repoMap, tenants), "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode parse result")
			}
			return outputCfg.Write(append(data, '\n'))
		},
	}
}

func sourcesOption(cfg *config.Sources) (usecase.ParserOption, error) {
	switch {
	case cfg.File != "":
		return usecase.WithSourcesFile(cfg.File), nil
	case cfg.Dir != "":
		return usecase.WithSourcesCheckout(checkout.NewDirectory(cfg.Repo(), cfg.Dir)), nil
	default:
		zipball, err := checkout.OpenZipball(cfg.Repo(), cfg.Zip, cfg.ZipOptions()...)
		if err != nil {
			return nil, err
		}
		return usecase.WithSourcesCheckout(zipball), nil
	}
}

func newParseOutput(repoMap model.RepoTenantMap, tenants []*model.Tenant) *parseOutput {
	out := &parseOutput{
		Tenants: tenants,
		Repos:   make(map[string]repoOutput, len(repoMap)),
	}
	for name, entry := range repoMap {
		out.Repos[name] = repoOutput{
			Jobs:  entry.JobNames(),
			Roles: entry.RoleNames(),
		}
	}
	return out
}
