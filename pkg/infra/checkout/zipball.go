package checkout

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/interfaces"
	"github.com/m-mizutani/tenantmap/pkg/domain/model"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
)

// Zipball is a checkout backed by an in-memory ZIP archive of a repository.
// Unless KeepTopLevel is given, archives whose entries all live under one
// top-level directory, like the zipballs served by GitHub ("owner-repo-sha/..."),
// are rooted at that directory. A top-level tenants directory is never
// stripped.
type Zipball struct {
	name  string
	files map[string]*zip.File
	dirs  map[string]map[string]bool // directory -> child name -> child is a directory
}

var _ interfaces.Checkout = (*Zipball)(nil)

type zipConfig struct {
	keepTopLevel bool
}

// ZipOption is a functional option for Zipball
type ZipOption func(*zipConfig)

// KeepTopLevel roots the checkout at the archive root even if all entries
// share one top-level directory
func KeepTopLevel() ZipOption {
	return func(c *zipConfig) {
		c.keepTopLevel = true
	}
}

// OpenZipball reads the archive at filePath and creates a checkout from it
func OpenZipball(name, filePath string, opts ...ZipOption) (*Zipball, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read zipball", goerr.V("path", filePath))
	}
	return NewZipball(name, data, opts...)
}

// NewZipball creates a checkout of the repository name from ZIP data
func NewZipball(name string, data []byte, opts ...ZipOption) (*Zipball, error) {
	cfg := &zipConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zip reader", goerr.V("repo", name))
	}

	z := &Zipball{
		name:  name,
		files: make(map[string]*zip.File),
		dirs:  map[string]map[string]bool{".": {}},
	}

	var prefix string
	if !cfg.keepTopLevel {
		prefix = commonPrefix(zipReader.File)
	}
	for _, file := range zipReader.File {
		entry := strings.TrimPrefix(file.Name, prefix)
		if entry == "" {
			continue
		}

		cleaned, err := cleanPath(entry)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid file path detected in zipball",
				goerr.V("repo", name),
				goerr.V("file", file.Name),
			)
		}
		if cleaned == "." {
			continue
		}

		if file.FileInfo().IsDir() {
			z.addDir(cleaned)
		} else {
			z.files[cleaned] = file
			z.addChild(path.Dir(cleaned), path.Base(cleaned), false)
		}
	}

	return z, nil
}

// commonPrefix returns "top/" if every entry of the archive is below the
// same top-level directory other than the tenants directory, and "" otherwise
func commonPrefix(files []*zip.File) string {
	var top string
	for _, file := range files {
		first, _, found := strings.Cut(file.Name, "/")
		if !found || first == "" {
			return ""
		}
		if top == "" {
			top = first
		} else if top != first {
			return ""
		}
	}
	if top == "" || top == model.TenantsDirectory {
		return ""
	}
	return top + "/"
}

func (z *Zipball) addDir(dir string) {
	if _, ok := z.dirs[dir]; !ok {
		z.dirs[dir] = map[string]bool{}
	}
	if dir != "." {
		z.addChild(path.Dir(dir), path.Base(dir), true)
	}
}

func (z *Zipball) addChild(dir, child string, isDir bool) {
	z.addDir(dir)
	z.dirs[dir][child] = isDir
}

// RepoName returns the repository name
func (z *Zipball) RepoName() string {
	return z.name
}

// ListDirectory lists the entries of a directory in the archive
func (z *Zipball) ListDirectory(ctx context.Context, dirPath string) ([]model.DirEntry, error) {
	cleaned, err := cleanPath(dirPath)
	if err != nil {
		return nil, err
	}

	children, ok := z.dirs[cleaned]
	if !ok {
		return nil, goerr.Wrap(types.ErrCheckout, "directory not found in zipball",
			goerr.V("repo", z.name),
			goerr.V("path", dirPath),
		)
	}

	result := make([]model.DirEntry, 0, len(children))
	for child, isDir := range children {
		result = append(result, model.DirEntry{Name: child, IsDir: isDir})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// CheckOutFile reads a file from the archive
func (z *Zipball) CheckOutFile(ctx context.Context, filePath string) ([]byte, error) {
	cleaned, err := cleanPath(filePath)
	if err != nil {
		return nil, err
	}

	file, ok := z.files[cleaned]
	if !ok {
		return nil, goerr.Wrap(types.ErrCheckout, "file not found in zipball",
			goerr.V("repo", z.name),
			goerr.V("path", filePath),
		)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, goerr.Wrap(types.ErrCheckout, "failed to open file in zipball",
			goerr.V("repo", z.name),
			goerr.V("path", filePath),
			goerr.V("error", err.Error()),
		)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, goerr.Wrap(types.ErrCheckout, "failed to read file in zipball",
			goerr.V("repo", z.name),
			goerr.V("path", filePath),
			goerr.V("error", err.Error()),
		)
	}
	if len(data) == 0 {
		return nil, goerr.Wrap(types.ErrCheckout, "file is empty",
			goerr.V("repo", z.name),
			goerr.V("path", filePath),
		)
	}

	return data, nil
}
