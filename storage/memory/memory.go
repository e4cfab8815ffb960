package memory

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/storage"
)

type object struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// Backend is an in-memory implementation of storage.Backend
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	puts    int
	now     func() time.Time
}

func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

func (b *Backend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; exists {
		return errs.ErrObjectExists
	}
	b.objects[key] = object{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		lastModified: b.now(),
	}
	b.puts++
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []storage.Object
	for key, obj := range b.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Object{
				Key:          key,
				Size:         int64(len(obj.data)),
				LastModified: obj.lastModified,
			})
		}
	}
	return out, nil
}

// Get returns the stored bytes and content type of key
func (b *Backend) Get(key string) ([]byte, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	return obj.data, obj.contentType, ok
}

// ServeHTTP serves stored objects by key, the request path with its leading slash removed. It
// stands in for the object store's public endpoint when no external store is configured.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")
	if !storage.ValidKey(key) {
		http.NotFound(w, r)
		return
	}
	data, contentType, ok := b.Get(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

// Puts returns how many objects have been written
func (b *Backend) Puts() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.puts
}

// SetClock replaces the time source used for LastModified
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
