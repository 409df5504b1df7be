package media

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlePrefix is the URL path under which playable handles are served to
// the webview.
const HandlePrefix = "/media/"

// ErrHandleNotFound is returned when resolving a released or unknown handle.
var ErrHandleNotFound = errors.New("media handle not found")

// Handle is an ephemeral reference that lets binary audio be played in the
// webview without duplicating it. Valid until released.
type Handle struct {
	ID       string
	URL      string
	MimeType string
}

type entry struct {
	data     []byte
	mimeType string
}

// Registry owns ephemeral playable handles for binary blobs. Handles must
// be released when their owner is torn down; ReleaseAll backs the workflow
// reset path.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Allocate stores the payload and returns a playable handle for it.
func (r *Registry) Allocate(data []byte, mimeType string) Handle {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = entry{data: data, mimeType: mimeType}
	r.mu.Unlock()

	return Handle{
		ID:       id,
		URL:      HandlePrefix + id,
		MimeType: mimeType,
	}
}

// Resolve returns the payload behind a handle ID.
func (r *Registry) Resolve(id string) ([]byte, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, "", ErrHandleNotFound
	}
	return e.data, e.mimeType, nil
}

// Release revokes one handle and drops its payload. Releasing an unknown or
// already-released handle is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// ReleaseAll revokes every live handle.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	r.entries = make(map[string]entry)
	r.mu.Unlock()
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Middleware serves registered handles under HandlePrefix and forwards all
// other requests to the asset server. It matches the Wails asset middleware
// signature.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasPrefix(req.URL.Path, HandlePrefix) {
			next.ServeHTTP(w, req)
			return
		}

		id := strings.TrimPrefix(req.URL.Path, HandlePrefix)
		data, mimeType, err := r.Resolve(id)
		if err != nil {
			http.NotFound(w, req)
			return
		}

		// ServeContent handles Range requests, which webview audio seeking
		// relies on.
		w.Header().Set("Content-Type", mimeType)
		http.ServeContent(w, req, "", time.Time{}, bytes.NewReader(data))
	})
}
