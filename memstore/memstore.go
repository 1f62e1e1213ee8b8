// Package memstore implements httpcache.Storage as a bounded, strict LRU
// held entirely in memory (spec §4.5), generalising the teacher's
// InMemoryCache (rotationalio-httpcache/inmem.go) from a flat byte-map to
// the Vary-aware variant model of spec §3/§4.4.
package memstore

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/cachestash/httpcache"
)

// ErrNotFound is returned by Update when no entry matches the request's
// variant.
var ErrNotFound = errors.New("memstore: no matching cache entry")

type entry struct {
	key  httpcache.StorageKey
	item httpcache.CacheItem
}

// Store is a bounded in-memory Storage backend. The zero value is not
// usable; construct with New. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	elements map[httpcache.StorageKey]*list.Element
	byURI    map[string]map[string]*list.Element

	onEvict  httpcache.KeyListener
	rewriter httpcache.PayloadRewriter
	now      func() time.Time
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithKeyListener registers a callback invoked whenever an entry stops
// being held by the store: eviction, invalidation, clear, or replacement by
// a later Insert for the same variant.
func WithKeyListener(fn httpcache.KeyListener) Option {
	return func(s *Store) { s.onEvict = fn }
}

// WithPayloadRewriter overrides how a response's payload is captured at
// insertion time. The default reads the payload fully into memory via
// httpcache.NewMemoryPayload.
func WithPayloadRewriter(fn httpcache.PayloadRewriter) Option {
	return func(s *Store) { s.rewriter = fn }
}

// New returns a Store bounded to capacity entries. capacity <= 0 means
// unbounded.
func New(capacity int, opts ...Option) *Store {
	s := &Store{
		capacity: capacity,
		ll:       list.New(),
		elements: make(map[httpcache.StorageKey]*list.Element),
		byURI:    make(map[string]map[string]*list.Element),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) defaultRewrite(key httpcache.StorageKey, resp httpcache.Response) (httpcache.Payload, error) {
	if s.rewriter != nil {
		return s.rewriter(key, resp)
	}
	if resp.Payload == nil || !resp.Payload.HasPayload() {
		return httpcache.NoPayload, nil
	}
	rc, err := resp.Payload.InputStream()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return httpcache.NewMemoryPayload(rc, resp.Payload.MediaType())
}

// Get implements httpcache.Storage.
func (s *Store) Get(req httpcache.Request) (httpcache.CacheItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := httpcache.NormalizeURI(req.URI)
	candidates := s.byURI[uri]
	for fp, el := range candidates {
		it := el.Value.(*entry).item
		cfp, cacheable := httpcache.Fingerprint(req, it.Response.Headers.Vary())
		if cacheable && cfp == fp {
			s.ll.MoveToFront(el)
			return it, true
		}
	}
	return httpcache.CacheItem{}, false
}

// Insert implements httpcache.Storage.
func (s *Store) Insert(req httpcache.Request, resp httpcache.Response) (httpcache.Response, error) {
	key, ok := httpcache.StorageKeyFor(req, resp.Headers.Vary())
	if !ok {
		return resp, nil
	}

	payload, err := s.defaultRewrite(key, resp)
	if err != nil {
		return httpcache.Response{}, err
	}
	stored := resp.WithPayload(payload)
	item := httpcache.NewCacheItem(stored, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, exists := s.elements[key]; exists {
		old := el.Value.(*entry).item
		el.Value.(*entry).item = item
		s.ll.MoveToFront(el)
		s.notify(key, old)
		return stored, nil
	}

	el := s.ll.PushFront(&entry{key: key, item: item})
	s.elements[key] = el
	if s.byURI[key.URI] == nil {
		s.byURI[key.URI] = make(map[string]*list.Element)
	}
	s.byURI[key.URI][key.Fingerprint] = el

	s.evictIfNeeded()
	return stored, nil
}

// Update implements httpcache.Storage.
func (s *Store) Update(req httpcache.Request, resp httpcache.Response) (httpcache.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := httpcache.NormalizeURI(req.URI)
	for fp, el := range s.byURI[uri] {
		e := el.Value.(*entry)
		cfp, cacheable := httpcache.Fingerprint(req, e.item.Response.Headers.Vary())
		if cacheable && cfp == fp {
			updated := resp.WithPayload(e.item.Response.Payload)
			e.item = httpcache.NewCacheItem(updated, e.item.ResponseTime)
			s.ll.MoveToFront(el)
			return updated, nil
		}
	}
	return httpcache.Response{}, ErrNotFound
}

// Invalidate implements httpcache.Storage.
func (s *Store) Invalidate(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri = httpcache.NormalizeURI(uri)
	for fp, el := range s.byURI[uri] {
		e := el.Value.(*entry)
		s.ll.Remove(el)
		delete(s.elements, e.key)
		delete(s.byURI[uri], fp)
		s.notify(e.key, e.item)
	}
	delete(s.byURI, uri)
	return nil
}

// Clear implements httpcache.Storage.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for el := s.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		s.notify(e.key, e.item)
	}
	s.ll.Init()
	s.elements = make(map[httpcache.StorageKey]*list.Element)
	s.byURI = make(map[string]map[string]*list.Element)
	return nil
}

// Size implements httpcache.Storage.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// Iterator implements httpcache.Storage. The returned iterator is a
// snapshot taken at call time.
func (s *Store) Iterator() httpcache.Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]entry, 0, s.ll.Len())
	for el := s.ll.Front(); el != nil; el = el.Next() {
		entries = append(entries, *el.Value.(*entry))
	}
	return &snapshotIterator{entries: entries, pos: -1}
}

// Restore inserts item directly under key without invoking the configured
// PayloadRewriter or touching s.now. It exists for composing stores that
// reconstruct their state from their own persisted representation at
// startup (e.g. diskstore replaying its metadata snapshot), where the
// payload handle has already been prepared by the caller.
func (s *Store) Restore(key httpcache.StorageKey, item httpcache.CacheItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el := s.ll.PushFront(&entry{key: key, item: item})
	s.elements[key] = el
	if s.byURI[key.URI] == nil {
		s.byURI[key.URI] = make(map[string]*list.Element)
	}
	s.byURI[key.URI][key.Fingerprint] = el
	s.evictIfNeeded()
}

// evictIfNeeded removes least-recently-used entries until the store is back
// within capacity. Caller must hold s.mu.
func (s *Store) evictIfNeeded() {
	if s.capacity <= 0 {
		return
	}
	for s.ll.Len() > s.capacity {
		el := s.ll.Back()
		if el == nil {
			return
		}
		e := el.Value.(*entry)
		s.ll.Remove(el)
		delete(s.elements, e.key)
		if m := s.byURI[e.key.URI]; m != nil {
			delete(m, e.key.Fingerprint)
			if len(m) == 0 {
				delete(s.byURI, e.key.URI)
			}
		}
		s.notify(e.key, e.item)
	}
}

// notify invokes the eviction listener, if set. Caller must hold s.mu; the
// listener itself must not call back into the store.
func (s *Store) notify(key httpcache.StorageKey, item httpcache.CacheItem) {
	if s.onEvict != nil {
		s.onEvict(key, item)
	}
}

type snapshotIterator struct {
	entries []entry
	pos     int
}

func (it *snapshotIterator) Next() bool {
	it.pos++
	return it.pos < len(it.entries)
}

func (it *snapshotIterator) Key() httpcache.StorageKey {
	return it.entries[it.pos].key
}

func (it *snapshotIterator) Item() httpcache.CacheItem {
	return it.entries[it.pos].item
}

var _ httpcache.Storage = (*Store)(nil)
