package doctree

import (
	"context"
	"sort"
	"sync"
)

// Opener opens a document through a concrete backend.
type Opener func(path string, creds Credentials) (Document, error)

// Renderer rasterizes a clipped page region of an open document to JPEG
// bytes. Backends that cannot rasterize return ErrRender.
type Renderer interface {
	RenderRegion(ctx context.Context, page int, bbox Rect, zoom float64) ([]byte, error)
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Opener)
)

// Register makes a document backend available under the given name.
// It panics on duplicate registration, mirroring database/sql.
func Register(name string, opener Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if opener == nil {
		panic("doctree: Register opener is nil")
	}
	if _, dup := backends[name]; dup {
		panic("doctree: Register called twice for backend " + name)
	}
	backends[name] = opener
}

// Backends returns the sorted names of the registered backends.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens path with the named backend.
func Open(name, path string, creds Credentials) (Document, error) {
	backendsMu.RLock()
	opener, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, NewError("Open", ErrNoBackend, name)
	}
	return opener(path, creds)
}
