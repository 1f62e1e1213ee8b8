// Package ristretto implements httpcache.Storage as an accelerator backend
// over github.com/dgraph-io/ristretto/v2, adapted from the teacher's
// ristretto.Cache (rotationalio-httpcache/ristretto/ristretto.go and
// config.go).
//
// Unlike memstore, this backend does NOT guarantee strict LRU eviction
// order or that an Insert followed immediately by a Get always succeeds:
// ristretto's TinyLFU admission policy may reject a fresh item under
// contention, and eviction happens on ristretto's own schedule rather than
// a deterministic recency order. It is offered as an opt-in, high-throughput
// alternative for workloads that can tolerate that — the spec's storage
// invariants are authoritatively satisfied by memstore and diskstore.
package ristretto

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/cachestash/httpcache"
)

// Config mirrors ristretto.Config, documented in terms of this package
// rather than the upstream library (as the teacher's config.go does for its
// own Cache type).
type Config struct {
	// NumCounters is the number of keys to track frequency of. Ristretto's
	// docs recommend roughly 10x the number of items expected at capacity.
	NumCounters int64
	// MaxCost bounds total admitted cost; Insert uses the encoded entry's
	// byte length as its cost.
	MaxCost int64
	// BufferItems sizes the internal Get buffers; 64 is a reasonable
	// default absent unusual contention.
	BufferItems int64
}

// Store is a Storage backend over a ristretto cache plus a small exact
// index used to support Get's variant lookup, Size, and Iterator (none of
// which ristretto exposes natively).
type Store struct {
	cache *ristretto.Cache[string, []byte]

	mu      sync.Mutex
	byURI   map[string]map[string]string                 // uri -> fingerprint -> composite key
	tracked map[string]httpcache.StorageKey               // composite key -> StorageKey
	cached  map[httpcache.StorageKey]httpcache.CacheItem // composite's last known decoded value
}

// New constructs a Store. Call Close when done to stop ristretto's internal
// goroutines.
func New(cfg Config) (*Store, error) {
	s := &Store{
		byURI:   make(map[string]map[string]string),
		tracked: make(map[string]httpcache.StorageKey),
		cached:  make(map[httpcache.StorageKey]httpcache.CacheItem),
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		OnEvict:     func(item *ristretto.Item[[]byte]) { s.forget(item.Key) },
		OnReject:    func(item *ristretto.Item[[]byte]) { s.forget(item.Key) },
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Close stops the underlying ristretto cache's goroutines. Implements
// io.Closer.
func (s *Store) Close() error {
	s.cache.Close()
	return nil
}

// Wait blocks until all buffered writes have been applied, as the teacher's
// Cache.Wait does, so a caller that needs a just-completed Insert to be
// immediately visible to Get can force that.
func (s *Store) Wait() { s.cache.Wait() }

func compositeKey(key httpcache.StorageKey) string {
	return key.URI + "\x00" + key.Fingerprint
}

func (s *Store) forget(composite string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.tracked[composite]
	if !ok {
		return
	}
	delete(s.tracked, composite)
	delete(s.cached, key)
	if m := s.byURI[key.URI]; m != nil {
		delete(m, key.Fingerprint)
		if len(m) == 0 {
			delete(s.byURI, key.URI)
		}
	}
}

func (s *Store) remember(key httpcache.StorageKey, item httpcache.CacheItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	composite := compositeKey(key)
	s.tracked[composite] = key
	s.cached[key] = item
	if s.byURI[key.URI] == nil {
		s.byURI[key.URI] = make(map[string]string)
	}
	s.byURI[key.URI][key.Fingerprint] = composite
}

func (s *Store) candidatesFor(uri string) map[string]httpcache.StorageKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]httpcache.StorageKey, len(s.byURI[uri]))
	for fp, composite := range s.byURI[uri] {
		out[fp] = s.tracked[composite]
	}
	return out
}

// Get implements httpcache.Storage.
func (s *Store) Get(req httpcache.Request) (httpcache.CacheItem, bool) {
	uri := httpcache.NormalizeURI(req.URI)
	for fp, key := range s.candidatesFor(uri) {
		s.mu.Lock()
		item, ok := s.cached[key]
		s.mu.Unlock()
		if !ok {
			continue
		}
		cfp, cacheable := httpcache.Fingerprint(req, item.Response.Headers.Vary())
		if cacheable && cfp == fp {
			return item, true
		}
	}
	return httpcache.CacheItem{}, false
}

// Insert implements httpcache.Storage. Because ristretto's admission is
// probabilistic, a successful Insert is not guaranteed to be retrievable by
// a subsequent Get; callers needing that guarantee should use memstore or
// diskstore instead.
func (s *Store) Insert(req httpcache.Request, resp httpcache.Response) (httpcache.Response, error) {
	key, ok := httpcache.StorageKeyFor(req, resp.Headers.Vary())
	if !ok {
		return resp, nil
	}

	payload, err := capturePayload(resp)
	if err != nil {
		return httpcache.Response{}, err
	}
	stored := resp.WithPayload(payload)
	item := httpcache.NewCacheItem(stored, time.Now())

	encoded, err := encodeItem(key, item)
	if err != nil {
		return httpcache.Response{}, err
	}

	composite := compositeKey(key)
	s.cache.Set(composite, encoded, int64(len(encoded)))
	s.cache.Wait()

	if _, ok := s.cache.Get(composite); !ok {
		// Rejected by the admission policy: return the response to the
		// caller as-is, but retain nothing.
		return stored, nil
	}
	s.remember(key, item)
	return stored, nil
}

// Update implements httpcache.Storage.
func (s *Store) Update(req httpcache.Request, resp httpcache.Response) (httpcache.Response, error) {
	uri := httpcache.NormalizeURI(req.URI)
	for fp, key := range s.candidatesFor(uri) {
		s.mu.Lock()
		existing, ok := s.cached[key]
		s.mu.Unlock()
		if !ok {
			continue
		}
		cfp, cacheable := httpcache.Fingerprint(req, existing.Response.Headers.Vary())
		if !cacheable || cfp != fp {
			continue
		}

		updated := resp.WithPayload(existing.Response.Payload)
		item := httpcache.NewCacheItem(updated, existing.ResponseTime)
		encoded, err := encodeItem(key, item)
		if err != nil {
			return httpcache.Response{}, err
		}
		s.cache.Set(compositeKey(key), encoded, int64(len(encoded)))
		s.cache.Wait()
		s.remember(key, item)
		return updated, nil
	}
	return httpcache.Response{}, fmt.Errorf("ristretto: no matching cache entry")
}

// Invalidate implements httpcache.Storage.
func (s *Store) Invalidate(uri string) error {
	uri = httpcache.NormalizeURI(uri)

	s.mu.Lock()
	composites := make([]string, 0, len(s.byURI[uri]))
	for _, composite := range s.byURI[uri] {
		composites = append(composites, composite)
	}
	s.mu.Unlock()

	for _, composite := range composites {
		s.cache.Del(composite)
		s.forget(composite)
	}
	return nil
}

// Clear implements httpcache.Storage.
func (s *Store) Clear() error {
	s.cache.Clear()
	s.mu.Lock()
	s.byURI = make(map[string]map[string]string)
	s.tracked = make(map[string]httpcache.StorageKey)
	s.cached = make(map[httpcache.StorageKey]httpcache.CacheItem)
	s.mu.Unlock()
	return nil
}

// Size implements httpcache.Storage. It reflects this package's own index,
// which can lag ristretto's true admitted set by up to one eviction cycle.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// Iterator implements httpcache.Storage over a snapshot of the index.
func (s *Store) Iterator() httpcache.Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]httpcache.StorageKey, 0, len(s.cached))
	items := make([]httpcache.CacheItem, 0, len(s.cached))
	for k, v := range s.cached {
		keys = append(keys, k)
		items = append(items, v)
	}
	return &sliceIterator{keys: keys, items: items, pos: -1}
}

type sliceIterator struct {
	keys  []httpcache.StorageKey
	items []httpcache.CacheItem
	pos   int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}
func (it *sliceIterator) Key() httpcache.StorageKey { return it.keys[it.pos] }
func (it *sliceIterator) Item() httpcache.CacheItem { return it.items[it.pos] }

//===========================================================================
// Wire encoding: a CacheItem's headers and payload, gob-encoded into the
// byte slice ristretto stores.
//===========================================================================

type headerPair struct{ Name, Value string }

type wireItem struct {
	StatusCode   int
	Headers      []headerPair
	ResponseTime time.Time
	PayloadBytes []byte
	MediaType    string
	HasPayload   bool
}

func capturePayload(resp httpcache.Response) (httpcache.Payload, error) {
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

func encodeItem(key httpcache.StorageKey, item httpcache.CacheItem) ([]byte, error) {
	w := wireItem{
		StatusCode:   item.Response.StatusCode,
		ResponseTime: item.ResponseTime,
	}
	for _, name := range item.Response.Headers.Names() {
		for _, v := range item.Response.Headers.Values(name) {
			w.Headers = append(w.Headers, headerPair{Name: name, Value: v})
		}
	}
	if item.Response.Payload != nil && item.Response.Payload.HasPayload() && item.Response.Payload.IsAvailable() {
		rc, err := item.Response.Payload.InputStream()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, err
		}
		w.PayloadBytes = buf.Bytes()
		w.MediaType = item.Response.Payload.MediaType()
		w.HasPayload = true
	}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(w); err != nil {
		return nil, fmt.Errorf("ristretto: encode entry for %s: %w", key.URI, err)
	}
	return out.Bytes(), nil
}

var _ httpcache.Storage = (*Store)(nil)
