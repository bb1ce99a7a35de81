package checkout

import (
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tenantmap/pkg/domain/types"
)

// cleanPath normalizes a slash separated path relative to the checkout root.
// The root itself is ".". Paths leaving the root are rejected.
func cleanPath(p string) (string, error) {
	if path.IsAbs(p) {
		return "", goerr.Wrap(types.ErrCheckout, "absolute path is not allowed", goerr.V("path", p))
	}

	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", goerr.Wrap(types.ErrCheckout, "path escapes checkout root", goerr.V("path", p))
	}
	return cleaned, nil
}
