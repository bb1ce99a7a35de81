package usecase_test

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
	"github.com/m-mizutani/tenantmap/pkg/usecase"
)

// mockCheckout is an in-memory implementation of interfaces.Checkout
type mockCheckout struct {
	name    string
	files   map[string]string
	fileErr error
}

func (m *mockCheckout) RepoName() string { return m.name }

func (m *mockCheckout) ListDirectory(ctx context.Context, dir string) ([]model.DirEntry, error) {
	children := map[string]bool{}
	for name := range m.files {
		rest, ok := strings.CutPrefix(name, dir+"/")
		if !ok {
			continue
		}
		child, _, nested := strings.Cut(rest, "/")
		children[child] = children[child] || nested
	}
	if len(children) == 0 {
		return nil, goerr.Wrap(types.ErrCheckout, "directory not found", goerr.V("path", dir))
	}

	var entries []model.DirEntry
	for child, isDir := range children {
		entries = append(entries, model.DirEntry{Name: child, IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *mockCheckout) CheckOutFile(ctx context.Context, filePath string) ([]byte, error) {
	if m.fileErr != nil {
		return nil, m.fileErr
	}
	content, ok := m.files[filePath]
	if !ok || content == "" {
		return nil, goerr.Wrap(types.ErrCheckout, "file not found", goerr.V("path", filePath))
	}
	return []byte(content), nil
}

func tenantFiles(name, sources string) map[string]string {
	return map[string]string{
		path.Join("tenants", name, "settings.yaml"): "name: " + name + "\n",
		path.Join("tenants", name, "sources.yaml"):  sources,
	}
}

func githubProjects(t *testing.T, src *model.TenantSource) map[string]model.ProjectList {
	t.Helper()
	projects, err := src.Tenant.Source.GitHubProjects()
	gt.NoError(t, err)
	return projects
}

func newMockCheckout(tenants ...map[string]string) *mockCheckout {
	files := map[string]string{"README.md": "# tenants"}
	for _, t := range tenants {
		for k, v := range t {
			files[k] = v
		}
	}
	return &mockCheckout{name: "orga/zuul-tenants", files: files}
}

func TestLoadSourcesFromFile(t *testing.T) {
	ctx := context.Background()

	t.Run("sequence of tenants", func(t *testing.T) {
		sourcesFile := filepath.Join(t.TempDir(), "main.yaml")
		gt.NoError(t, os.WriteFile(sourcesFile, []byte(`
- tenant:
    name: foo
    source:
      github:
        config-project:
          - orga/config
- tenant:
    name: bar
    source:
      github:
        untrusted-project:
          - orga/repo-a:
              exclude: [jobs]
`), 0644))

		sources, err := usecase.LoadSourcesFromFile(ctx, sourcesFile)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 2)
		gt.Equal(t, *sources[0].Tenant.Name, "foo")
		gt.Equal(t, *sources[1].Tenant.Name, "bar")
		gt.Equal(t, githubProjects(t, sources[1])["untrusted-project"], model.ProjectList{
			model.ExcludingProject{Name: "orga/repo-a", Exclude: []string{"jobs"}},
		})
	})

	t.Run("missing file", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		_, err := usecase.LoadSourcesFromFile(ctx, missing)
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains(missing)
	})

	t.Run("malformed file", func(t *testing.T) {
		sourcesFile := filepath.Join(t.TempDir(), "main.yaml")
		gt.NoError(t, os.WriteFile(sourcesFile, []byte("tenant: [unclosed\n"), 0644))

		_, err := usecase.LoadSourcesFromFile(ctx, sourcesFile)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedInput))
		gt.String(t, err.Error()).Contains(sourcesFile)
	})

	t.Run("not a sequence", func(t *testing.T) {
		sourcesFile := filepath.Join(t.TempDir(), "main.yaml")
		gt.NoError(t, os.WriteFile(sourcesFile, []byte("tenant:\n  name: foo\n"), 0644))

		_, err := usecase.LoadSourcesFromFile(ctx, sourcesFile)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedInput))
	})
}

func TestLoadSourcesFromCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("merges settings and sources", func(t *testing.T) {
		repo := newMockCheckout(tenantFiles("foo", "github:\n  config-project:\n    - orga/config\n"))

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 1)
		gt.Equal(t, *sources[0].Tenant.Name, "foo")
		gt.Equal(t, githubProjects(t, sources[0])["config-project"], model.ProjectList{
			model.PlainProject{Name: "orga/config"},
		})
	})

	t.Run("sources.yaml replaces a source key in settings.yaml", func(t *testing.T) {
		repo := newMockCheckout(map[string]string{
			"tenants/foo/settings.yaml": "name: foo\nsource:\n  github:\n    config-project: [stale]\n",
			"tenants/foo/sources.yaml":  "github:\n  config-project: [fresh]\n",
		})

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, githubProjects(t, sources[0])["config-project"], model.ProjectList{
			model.PlainProject{Name: "fresh"},
		})
	})

	t.Run("skips tenant missing sources.yaml", func(t *testing.T) {
		foo := tenantFiles("foo", "")
		delete(foo, "tenants/foo/sources.yaml")
		repo := newMockCheckout(foo, tenantFiles("bar", "github:\n  config-project: [orga/config]\n"))

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 1)
		gt.Equal(t, *sources[0].Tenant.Name, "bar")
	})

	t.Run("skips tenant with empty settings.yaml", func(t *testing.T) {
		foo := tenantFiles("foo", "github:\n  config-project: [orga/config]\n")
		foo["tenants/foo/settings.yaml"] = ""
		repo := newMockCheckout(foo, tenantFiles("bar", "github:\n  config-project: [orga/config]\n"))

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 1)
		gt.Equal(t, *sources[0].Tenant.Name, "bar")
	})

	t.Run("keeps listing order", func(t *testing.T) {
		repo := newMockCheckout(
			tenantFiles("c-tenant", "github:\n  config-project: [r]\n"),
			tenantFiles("a-tenant", "github:\n  config-project: [r]\n"),
			tenantFiles("b-tenant", "github:\n  config-project: [r]\n"),
		)

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 3)
		gt.Equal(t, *sources[0].Tenant.Name, "a-tenant")
		gt.Equal(t, *sources[1].Tenant.Name, "b-tenant")
		gt.Equal(t, *sources[2].Tenant.Name, "c-tenant")
	})

	t.Run("loads tenant with undecodable projects", func(t *testing.T) {
		repo := newMockCheckout(tenantFiles("foo", "github:\n  untrusted-project:\n    - [nested]\n"))

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.NoError(t, err)
		gt.Equal(t, len(sources), 1)
		gt.True(t, sources[0].Tenant.Source.HasGitHub())

		_, err = sources[0].Tenant.Source.GitHubProjects()
		gt.True(t, errors.Is(err, types.ErrMalformedInput))
	})

	t.Run("missing tenants directory", func(t *testing.T) {
		repo := newMockCheckout()

		sources, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.Error(t, err)
		gt.Equal(t, len(sources), 0)
		gt.True(t, errors.Is(err, types.ErrConfiguration))
		gt.String(t, err.Error()).Contains("orga/zuul-tenants")
	})

	t.Run("malformed settings propagates", func(t *testing.T) {
		foo := tenantFiles("foo", "github:\n  config-project: [orga/config]\n")
		foo["tenants/foo/settings.yaml"] = "name: [unclosed\n"
		repo := newMockCheckout(foo)

		_, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedInput))
	})

	t.Run("non checkout error propagates", func(t *testing.T) {
		repo := newMockCheckout(tenantFiles("foo", "github: {}\n"))
		repo.fileErr = errors.New("connection reset")

		_, err := usecase.LoadSourcesFromCheckout(ctx, repo)
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("connection reset")
	})
}
