package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/interfaces"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
)

// parserConfig holds the tenant sources a TenantParser loads from
type parserConfig struct {
	sourcesFile     string
	sourcesCheckout interfaces.Checkout
}

// ParserOption is a functional option for TenantParser
type ParserOption func(*parserConfig)

// WithSourcesFile loads tenant sources from a single sources file.
// It takes precedence over WithSourcesCheckout.
func WithSourcesFile(path string) ParserOption {
	return func(c *parserConfig) {
		c.sourcesFile = path
	}
}

// WithSourcesCheckout loads tenant sources from the tenants directory of a checkout
func WithSourcesCheckout(checkout interfaces.Checkout) ParserOption {
	return func(c *parserConfig) {
		c.sourcesCheckout = checkout
	}
}

// TenantParser folds tenant sources into tenants and a repository to tenant map
type TenantParser struct {
	scrapeTime time.Time
	sources    []*model.TenantSource
}

// NewTenantParser loads the tenant sources given by opts
func NewTenantParser(ctx context.Context, scrapeTime time.Time, opts ...ParserOption) (*TenantParser, error) {
	cfg := &parserConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var (
		sources []*model.TenantSource
		err     error
	)
	switch {
	case cfg.sourcesFile != "":
		sources, err = LoadSourcesFromFile(ctx, cfg.sourcesFile)
	case cfg.sourcesCheckout != nil:
		sources, err = LoadSourcesFromCheckout(ctx, cfg.sourcesCheckout)
	default:
		return nil, goerr.Wrap(types.ErrConfiguration, "either a sources file or a sources checkout is required")
	}
	if err != nil {
		return nil, err
	}

	return &TenantParser{
		scrapeTime: scrapeTime,
		sources:    sources,
	}, nil
}

// Sources returns the loaded tenant sources
func (p *TenantParser) Sources() []*model.TenantSource {
	return p.sources
}

// Parse builds the repository to tenant map and the tenant list.
//
// Folding stops at the first tenant without a github source: the tenants
// before it are returned and the remaining ones are not processed.
func (p *TenantParser) Parse(ctx context.Context) (model.RepoTenantMap, []*model.Tenant, error) {
	logger := ctxlog.From(ctx)

	repoMap := model.RepoTenantMap{}
	tenants := []*model.Tenant{}

	for i, src := range p.sources {
		if src == nil || src.Tenant == nil {
			return nil, nil, goerr.Wrap(types.ErrMalformedInput, "missing key 'tenant' in tenant source", goerr.V("index", i))
		}
		spec := src.Tenant
		if spec.Name == nil {
			return nil, nil, goerr.Wrap(types.ErrMalformedInput, "missing key 'name' in tenant", goerr.V("index", i))
		}
		name := *spec.Name
		if spec.Source == nil {
			return nil, nil, goerr.Wrap(types.ErrMalformedInput, "missing key 'source' in tenant",
				goerr.V("index", i),
				goerr.V("tenant", name),
			)
		}

		if !spec.Source.HasGitHub() {
			logger.Debug("No key 'github' found in source, skipping ...", "tenant", name)
			break
		}

		github, err := spec.Source.GitHubProjects()
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to decode github source", goerr.V("tenant", name))
		}

		tenant := model.NewTenant(name, p.scrapeTime)

		// categories are config-project or untrusted-project
		categories := make([]string, 0, len(github))
		for category := range github {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		for _, category := range categories {
			for _, project := range github[category] {
				if err := updateRepoMap(repoMap, project, tenant); err != nil {
					return nil, nil, goerr.Wrap(err, "failed to fold project",
						goerr.V("tenant", name),
						goerr.V("category", category),
					)
				}
			}
		}

		tenants = append(tenants, tenant)
	}

	logger.Debug("Parsed tenant sources",
		"tenant_count", len(tenants),
		"repo_count", len(repoMap),
	)

	return repoMap, tenants, nil
}

func updateRepoMap(repoMap model.RepoTenantMap, project model.ProjectRef, tenant *model.Tenant) error {
	name, excludeJobs, err := resolveProject(project)
	if err != nil {
		return err
	}

	entry := repoMap.Entry(name)
	if !excludeJobs {
		entry.Jobs = append(entry.Jobs, tenant)
	}
	// The exclusion list is not consulted for roles
	entry.Roles = append(entry.Roles, tenant)
	return nil
}

func resolveProject(project model.ProjectRef) (name string, excludeJobs bool, err error) {
	switch p := project.(type) {
	case model.PlainProject:
		return p.Name, false, nil
	case model.ExcludingProject:
		return p.Name, p.Excludes(model.CategoryJobs), nil
	default:
		return "", false, goerr.Wrap(types.ErrMalformedInput, "unknown project reference")
	}
}
