package interfaces

import (
	"context"

	"github.com/m-mizutani/tenantmap/pkg/domain/model"
)

// Checkout is a retrievable snapshot of a repository file tree
type Checkout interface {
	// RepoName identifies the repository in diagnostics
	RepoName() string

	// ListDirectory returns the entries of the directory at path, ordered by name.
	// It fails with types.ErrCheckout if the path does not exist.
	ListDirectory(ctx context.Context, path string) ([]model.DirEntry, error)

	// CheckOutFile returns the content of the file at path.
	// It fails with types.ErrCheckout if the file is missing or empty.
	CheckOutFile(ctx context.Context, path string) ([]byte, error)
}
