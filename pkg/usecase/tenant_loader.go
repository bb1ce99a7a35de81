package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/interfaces"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
	"gopkg.in/yaml.v3"
)

const (
	settingsFile = "settings.yaml"
	sourcesFile  = "sources.yaml"
)

// LoadSourcesFromFile parses a sources file holding a sequence of tenant definitions
func LoadSourcesFromFile(ctx context.Context, filePath string) ([]*model.TenantSource, error) {
	logger := ctxlog.From(ctx)
	logger.Info("Parsing tenant sources file", "path", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, goerr.Wrap(err, fmt.Sprintf("failed to read tenant sources file '%s'", filePath))
	}

	var sources []*model.TenantSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, goerr.Wrap(malformed(err), fmt.Sprintf("failed to parse tenant sources file '%s'", filePath))
	}

	logger.Debug("Parsed tenant sources file", "path", filePath, "tenant_count", len(sources))
	return sources, nil
}

// LoadSourcesFromCheckout collects tenant definitions from the tenants
// directory of a repository checkout. Tenants missing settings.yaml or
// sources.yaml are skipped.
func LoadSourcesFromCheckout(ctx context.Context, checkout interfaces.Checkout) ([]*model.TenantSource, error) {
	logger := ctxlog.From(ctx)
	repoName := checkout.RepoName()
	logger.Info("Collecting tenant sources from repo", "repo", repoName)

	entries, err := checkout.ListDirectory(ctx, model.TenantsDirectory)
	if err != nil {
		if errors.Is(err, types.ErrCheckout) {
			return nil, goerr.Wrap(types.ErrConfiguration,
				fmt.Sprintf("cannot load tenant sources, repo '%s' does not contain a '%s' folder", repoName, model.TenantsDirectory),
				goerr.V("error", err.Error()),
			)
		}
		return nil, goerr.Wrap(err, fmt.Sprintf("failed to list tenants directory of repo '%s'", repoName))
	}

	var sources []*model.TenantSource
	for _, entry := range entries {
		src, err := loadTenantFromCheckout(ctx, checkout, entry.Name)
		if err != nil {
			if errors.Is(err, types.ErrCheckout) {
				logger.Warn("Either 'settings.yaml' or 'sources.yaml' are missing or empty in repo",
					"repo", repoName,
					"tenant", entry.Name,
					"error", err,
				)
				continue
			}
			return nil, err
		}
		sources = append(sources, src)
	}

	logger.Debug("Collected tenant sources from repo", "repo", repoName, "tenant_count", len(sources))
	return sources, nil
}

// loadTenantFromCheckout builds the same structure a sources file entry has:
// settings.yaml is the tenant object and sources.yaml is nested under "source"
func loadTenantFromCheckout(ctx context.Context, checkout interfaces.Checkout, tenant string) (*model.TenantSource, error) {
	sourcesPath := path.Join(model.TenantsDirectory, tenant, sourcesFile)
	settingsPath := path.Join(model.TenantsDirectory, tenant, settingsFile)

	sourcesData, err := checkout.CheckOutFile(ctx, sourcesPath)
	if err != nil {
		return nil, err
	}
	settingsData, err := checkout.CheckOutFile(ctx, settingsPath)
	if err != nil {
		return nil, err
	}

	var spec model.TenantSpec
	if err := yaml.Unmarshal(settingsData, &spec); err != nil {
		return nil, goerr.Wrap(malformed(err),
			fmt.Sprintf("failed to parse '%s' in repo '%s'", settingsPath, checkout.RepoName()),
		)
	}

	var source model.SourceSpec
	if err := yaml.Unmarshal(sourcesData, &source); err != nil {
		return nil, goerr.Wrap(malformed(err),
			fmt.Sprintf("failed to parse '%s' in repo '%s'", sourcesPath, checkout.RepoName()),
		)
	}
	spec.Source = &source

	return &model.TenantSource{Tenant: &spec}, nil
}

// malformed marks a YAML decoding error as types.ErrMalformedInput
func malformed(err error) error {
	if errors.Is(err, types.ErrMalformedInput) {
		return err
	}
	return goerr.Wrap(types.ErrMalformedInput, "invalid YAML", goerr.V("error", err.Error()))
}
