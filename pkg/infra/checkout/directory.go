package checkout

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/interfaces"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
)

// Directory is a checkout backed by a local directory
type Directory struct {
	name string
	root string
}

var _ interfaces.Checkout = (*Directory)(nil)

// NewDirectory creates a checkout of the repository name rooted at root
func NewDirectory(name, root string) *Directory {
	return &Directory{
		name: name,
		root: filepath.Clean(root),
	}
}

// RepoName returns the repository name
func (d *Directory) RepoName() string {
	return d.name
}

// ListDirectory lists the entries of a directory relative to the root
func (d *Directory) ListDirectory(ctx context.Context, path string) ([]model.DirEntry, error) {
	fullPath, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, goerr.Wrap(types.ErrCheckout, "failed to list directory",
			goerr.V("repo", d.name),
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}

	result := make([]model.DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, model.DirEntry{
			Name:  entry.Name(),
			IsDir: entry.IsDir(),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// CheckOutFile reads a file relative to the root
func (d *Directory) CheckOutFile(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, goerr.Wrap(types.ErrCheckout, "failed to check out file",
			goerr.V("repo", d.name),
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}
	if len(data) == 0 {
		return nil, goerr.Wrap(types.ErrCheckout, "file is empty",
			goerr.V("repo", d.name),
			goerr.V("path", path),
		)
	}

	return data, nil
}

func (d *Directory) resolve(path string) (string, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(cleaned)), nil
}
