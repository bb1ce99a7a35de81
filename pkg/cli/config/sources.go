package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
	"github.com/m-mizutani/tenantmap/pkg/infra/checkout"
	"github.com/urfave/cli/v3"
)

// Sources holds the location of tenant sources and the scrape run settings
type Sources struct {
	File       string
	Dir        string
	Zip        string
	RepoName   string
	ScrapeTime string

	ZipKeepTopLevel bool
}

// Flags returns CLI flags for tenant sources configuration
func (c *Sources) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sources-file",
			Usage:       "Path to a YAML file holding all tenant definitions",
			Destination: &c.File,
			Sources:     cli.EnvVars("TENANTMAP_SOURCES_FILE"),
		},
		&cli.StringFlag{
			Name:        "sources-dir",
			Usage:       "Path to a repository checkout with a 'tenants' directory",
			Destination: &c.Dir,
			Sources:     cli.EnvVars("TENANTMAP_SOURCES_DIR"),
		},
		&cli.StringFlag{
			Name:        "sources-zip",
			Usage:       "Path to a repository zipball with a 'tenants' directory",
			Destination: &c.Zip,
			Sources:     cli.EnvVars("TENANTMAP_SOURCES_ZIP"),
		},
		&cli.BoolFlag{
			Name:        "sources-zip-keep-top-level",
			Usage:       "Do not strip the single top-level directory of the zipball",
			Destination: &c.ZipKeepTopLevel,
			Sources:     cli.EnvVars("TENANTMAP_SOURCES_ZIP_KEEP_TOP_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "repo-name",
			Usage:       "Name of the sources repository used in logs (default: base name of the checkout)",
			Destination: &c.RepoName,
			Sources:     cli.EnvVars("TENANTMAP_REPO_NAME"),
		},
		&cli.StringFlag{
			Name:        "scrape-time",
			Usage:       "Scrape time assigned to every tenant, RFC3339 (default: now)",
			Destination: &c.ScrapeTime,
			Sources:     cli.EnvVars("TENANTMAP_SCRAPE_TIME"),
		},
	}
}

// Validate checks that exactly one source location is given
func (c *Sources) Validate() error {
	var count int
	for _, v := range []string{c.File, c.Dir, c.Zip} {
		if v != "" {
			count++
		}
	}
	if count != 1 {
		return goerr.Wrap(types.ErrConfiguration, "exactly one of --sources-file, --sources-dir or --sources-zip is required",
			goerr.V("given", count),
		)
	}
	return nil
}

// ZipOptions returns the zipball options given by the flags
func (c *Sources) ZipOptions() []checkout.ZipOption {
	var opts []checkout.ZipOption
	if c.ZipKeepTopLevel {
		opts = append(opts, checkout.KeepTopLevel())
	}
	return opts
}

// Repo returns the repository name of the checkout
func (c *Sources) Repo() string {
	if c.RepoName != "" {
		return c.RepoName
	}
	switch {
	case c.Dir != "":
		return filepath.Base(filepath.Clean(c.Dir))
	case c.Zip != "":
		return strings.TrimSuffix(filepath.Base(c.Zip), filepath.Ext(c.Zip))
	default:
		return ""
	}
}

// Time returns the scrape time, or now if none is given
func (c *Sources) Time(now time.Time) (time.Time, error) {
	if c.ScrapeTime == "" {
		return now, nil
	}
	t, err := time.Parse(time.RFC3339, c.ScrapeTime)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid scrape time", goerr.V("scrape_time", c.ScrapeTime))
	}
	return t, nil
}
