// Package attachment stores the scanned RC documents attached to entries.
//
// Entries keep only a URL. The object behind it lives in a Store under a generated
// name; Locator converts between the two.
package attachment

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType is the only media type accepted for attachments.
const ContentType = "application/pdf"

// Store is a blob store keyed by generated filename.
type Store interface {
	// Put writes the object. size is the exact number of bytes r yields.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Get returns sentinel.ErrNotFound for a missing object.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete is idempotent: removing a missing object succeeds.
	Delete(ctx context.Context, name string) error
}

// NewName generates a collision-free object name, e.g. pdf-1718000000000-<uuid>.pdf.
func NewName(now time.Time) string {
	return fmt.Sprintf("pdf-%d-%s.pdf", now.UnixMilli(), uuid.NewString())
}

// ValidName reports whether name is a single safe path segment.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Locator maps object names to the public URLs stored on entries.
type Locator struct {
	root string
}

// NewLocator builds a Locator for URLs under root, e.g. "/utils/uploads".
func NewLocator(root string) Locator {
	return Locator{root: strings.TrimRight(root, "/")}
}

// Root is the URL prefix attachments are served under.
func (l Locator) Root() string {
	if l.root == "" {
		return "/"
	}
	return l.root
}

// URL returns the public URL for name.
func (l Locator) URL(name string) string {
	return l.root + "/" + name
}

// Name extracts the object name from a stored URL. It reports false for URLs
// outside the root or with an unsafe name, which callers treat as nothing to clean up.
func (l Locator) Name(url string) (string, bool) {
	prefix := l.root + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if !ValidName(name) {
		return "", false
	}
	return name, true
}
