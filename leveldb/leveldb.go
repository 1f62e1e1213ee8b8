// Package leveldb implements httpcache.Storage over
// github.com/syndtr/goleveldb, adapted from the teacher's leveldb.Cache
// (rotationalio-httpcache/leveldb/leveldb.go) from a flat byte-map into the
// Vary-aware variant model of spec §3/§4.4. leveldb's lexically sorted keys
// let Get/Invalidate scan a URI's variants by key prefix instead of
// requiring a separate in-memory index, unlike the ristretto backend.
package leveldb

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/cachestash/httpcache"
)

const keySeparator = "\x00"

// Store is a Storage backend over an embedded leveldb database.
type Store struct {
	db *leveldb.DB
}

// New opens (or creates) a leveldb database at path and returns a Store
// backed by it.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Make returns a Store using an already-open leveldb database, as the
// teacher's Make does for its Cache type.
func Make(db *leveldb.DB) *Store { return &Store{db: db} }

// Close closes the underlying database. Implements io.Closer.
func (s *Store) Close() error { return s.db.Close() }

func storageKey(uri, fingerprint string) []byte {
	return []byte(uri + keySeparator + fingerprint)
}

func prefixFor(uri string) []byte { return []byte(uri + keySeparator) }

func fingerprintFromKey(key, prefix []byte) string {
	return string(bytes.TrimPrefix(key, prefix))
}

type headerPair struct{ Name, Value string }

type wireItem struct {
	StatusCode   int
	Headers      []headerPair
	ResponseTime time.Time
	PayloadBytes []byte
	MediaType    string
	HasPayload   bool
}

func encodeItem(item httpcache.CacheItem) ([]byte, error) {
	w := wireItem{StatusCode: item.Response.StatusCode, ResponseTime: item.ResponseTime}
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
		return nil, fmt.Errorf("leveldb: encode entry: %w", err)
	}
	return out.Bytes(), nil
}

func decodeItem(data []byte) (httpcache.CacheItem, error) {
	var w wireItem
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return httpcache.CacheItem{}, fmt.Errorf("%w: %w", httpcache.ErrCorruptStore, err)
	}

	h := httpcache.Headers{}
	for _, pair := range w.Headers {
		h = h.Add(pair.Name, pair.Value)
	}

	var payload httpcache.Payload = httpcache.NoPayload
	if w.HasPayload {
		mp, err := httpcache.NewMemoryPayload(bytes.NewReader(w.PayloadBytes), w.MediaType)
		if err != nil {
			return httpcache.CacheItem{}, err
		}
		payload = mp
	}

	resp := httpcache.Response{StatusCode: w.StatusCode, Headers: h, Payload: payload}
	return httpcache.NewCacheItem(resp, w.ResponseTime), nil
}

// Get implements httpcache.Storage.
func (s *Store) Get(req httpcache.Request) (httpcache.CacheItem, bool) {
	prefix := prefixFor(httpcache.NormalizeURI(req.URI))
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		item, err := decodeItem(it.Value())
		if err != nil {
			httpcache.GetLogger().Warn("skipping corrupt leveldb cache entry", "error", err)
			continue
		}
		fp := fingerprintFromKey(it.Key(), prefix)
		cfp, cacheable := httpcache.Fingerprint(req, item.Response.Headers.Vary())
		if cacheable && cfp == fp {
			return item, true
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

	payload, err := capturePayload(resp)
	if err != nil {
		return httpcache.Response{}, err
	}
	stored := resp.WithPayload(payload)
	item := httpcache.NewCacheItem(stored, time.Now())

	encoded, err := encodeItem(item)
	if err != nil {
		return httpcache.Response{}, err
	}
	if err := s.db.Put(storageKey(key.URI, key.Fingerprint), encoded, nil); err != nil {
		return httpcache.Response{}, fmt.Errorf("leveldb: put: %w", err)
	}
	return stored, nil
}

// Update implements httpcache.Storage.
func (s *Store) Update(req httpcache.Request, resp httpcache.Response) (httpcache.Response, error) {
	prefix := prefixFor(httpcache.NormalizeURI(req.URI))
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		existing, err := decodeItem(it.Value())
		if err != nil {
			continue
		}
		fp := fingerprintFromKey(it.Key(), prefix)
		cfp, cacheable := httpcache.Fingerprint(req, existing.Response.Headers.Vary())
		if !cacheable || cfp != fp {
			continue
		}

		updated := resp.WithPayload(existing.Response.Payload)
		item := httpcache.NewCacheItem(updated, existing.ResponseTime)
		encoded, err := encodeItem(item)
		if err != nil {
			return httpcache.Response{}, err
		}
		key := append([]byte(nil), it.Key()...)
		if err := s.db.Put(key, encoded, nil); err != nil {
			return httpcache.Response{}, fmt.Errorf("leveldb: put: %w", err)
		}
		return updated, nil
	}
	return httpcache.Response{}, fmt.Errorf("leveldb: no matching cache entry")
}

// Invalidate implements httpcache.Storage.
func (s *Store) Invalidate(uri string) error {
	norm := httpcache.NormalizeURI(uri)
	it := s.db.NewIterator(util.BytesPrefix(prefixFor(norm)), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("leveldb: iterate for invalidate: %w", err)
	}
	return s.db.Write(batch, nil)
}

// Clear implements httpcache.Storage.
func (s *Store) Clear() error {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("leveldb: iterate for clear: %w", err)
	}
	return s.db.Write(batch, nil)
}

// Size implements httpcache.Storage by counting every key. O(n); leveldb
// keeps no running total.
func (s *Store) Size() int {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n
}

// Iterator implements httpcache.Storage over a snapshot of the database.
func (s *Store) Iterator() httpcache.Iterator {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()

	var keys []httpcache.StorageKey
	var items []httpcache.CacheItem
	for it.Next() {
		parts := bytes.SplitN(it.Key(), []byte(keySeparator), 2)
		if len(parts) != 2 {
			continue
		}
		item, err := decodeItem(it.Value())
		if err != nil {
			continue
		}
		keys = append(keys, httpcache.StorageKey{URI: string(parts[0]), Fingerprint: string(parts[1])})
		items = append(items, item)
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

var _ httpcache.Storage = (*Store)(nil)
