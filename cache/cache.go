// Package cache marks rendered public paths stale after a post changes.
package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

// Paths invalidated by blog mutations
const (
	BlogListPath   = "/blogs"
	AdminPostsPath = "/admin/posts"
	SitemapPath    = "/sitemap.xml"
)

// BlogPostPath is the public detail path of a post
func BlogPostPath(slug string) string {
	return BlogListPath + "/" + slug
}

// Invalidator signals that whatever is cached for path is stale. It is best-effort: no
// acknowledgement, no retry, and failures are never reported to the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, path string)
}

// Multi fans one invalidation out to several invalidators
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, path string) {
	for _, inv := range m {
		if inv != nil {
			inv.Invalidate(ctx, path)
		}
	}
}

// Nop ignores every invalidation
type Nop struct{}

func (Nop) Invalidate(context.Context, string) {}

type entry struct {
	path        string
	status      int
	contentType string
	body        []byte
	storedAt    time.Time
}

// MaxEntries bounds the number of responses a Store holds
const MaxEntries = 1000

// Store is an in-process cache of public GET responses keyed by request path
type Store struct {
	mu         sync.RWMutex
	entries    map[uint64]entry
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// NewStore keeps up to MaxEntries responses for maxAge; zero keeps them until invalidated or
// evicted.
func NewStore(maxAge time.Duration) *Store {
	return &Store{
		entries:    make(map[uint64]entry),
		maxAge:     maxAge,
		maxEntries: MaxEntries,
		now:        time.Now,
	}
}

func key(path string) uint64 {
	return xxhash.Sum64String(path)
}

// Invalidate drops the cached response for path together with its query variants, so
// /blogs also drops /blogs?project=digital-mix.
func (s *Store) Invalidate(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key(path))
	for k, e := range s.entries {
		if strings.HasPrefix(e.path, path+"?") {
			delete(s.entries, k)
		}
	}
	log.Debug().Str("path", path).Msg("cache invalidated")
}

// Len returns the number of cached responses
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) get(path string) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key(path)]
	if !ok || e.path != path {
		return entry{}, false
	}
	if s.expired(e, s.now()) {
		return entry{}, false
	}
	return e, true
}

func (s *Store) expired(e entry, now time.Time) bool {
	return s.maxAge > 0 && now.Sub(e.storedAt) > s.maxAge
}

// put stores e after dropping expired entries. A full store evicts its oldest entry.
func (s *Store) put(e entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e.storedAt = now
	k := key(e.path)

	var oldestKey uint64
	var oldest time.Time
	for ek, existing := range s.entries {
		if s.expired(existing, now) {
			delete(s.entries, ek)
			continue
		}
		if oldest.IsZero() || existing.storedAt.Before(oldest) {
			oldestKey, oldest = ek, existing.storedAt
		}
	}
	if _, ok := s.entries[k]; !ok && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		delete(s.entries, oldestKey)
	}
	s.entries[k] = e
}

// cachePath is the cache key of a request: its path plus the project parameter, the only query
// value the public routes read. Other parameters share the entry.
func cachePath(r *http.Request) string {
	project := strings.TrimSpace(r.URL.Query().Get("project"))
	if project == "" {
		return r.URL.Path
	}
	return fmt.Sprintf("%s?project=%s", r.URL.Path, url.QueryEscape(project))
}

// Middleware serves GET requests from the store and stores successful responses.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		path := cachePath(r)

		if e, ok := s.get(path); ok {
			w.Header().Set("Content-Type", e.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(e.status)
			w.Write(e.body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			s.put(entry{
				path:        path,
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.body,
			})
		}
	})
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        []byte
}

func (w *recordingWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
