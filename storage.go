package httpcache

// Storage is the abstract contract every backend (memstore, diskstore,
// ristretto, leveldb) implements, per spec §4.4.
//
// Invariants every implementation must uphold:
//   - After Insert, Get with a matching request returns an item whose
//     response bytes equal the inserted bytes.
//   - Insert followed by Insert with the same key replaces the old item and
//     releases the old payload handle.
//   - After Invalidate(uri), no key with that URI remains.
//   - Size equals the number of live items.
type Storage interface {
	// Get returns the item whose variant fingerprint, derived from its own
	// cached Vary header, matches req. ok is false on no matching variant.
	Get(req Request) (item CacheItem, ok bool)

	// Insert computes the variant fingerprint from resp's Vary header,
	// stores (uri, fingerprint) -> item, evicts per capacity policy, and
	// returns a response whose payload has been rewritten to a stable
	// handle owned by storage.
	Insert(req Request, resp Response) (stored Response, err error)

	// Update replaces the headers of the existing item for req's variant
	// while preserving its payload.
	Update(req Request, resp Response) (stored Response, err error)

	// Invalidate removes every variant stored under uri.
	Invalidate(uri string) error

	// Clear removes everything. Persistent implementations also delete
	// on-disk state.
	Clear() error

	// Size returns the number of live items.
	Size() int

	// Iterator returns a restartable sequence of (key, item) pairs.
	// Behaviour is undefined if storage is mutated during iteration.
	Iterator() Iterator
}

// Iterator walks a Storage's contents. Next returns false once exhausted.
type Iterator interface {
	Next() bool
	Key() StorageKey
	Item() CacheItem
}

// KeyListener is notified when a store evicts or invalidates a key, so a
// composing store (diskstore over memstore) can release any resources it
// keeps alongside the in-memory entry (e.g. a backing payload file).
type KeyListener func(key StorageKey, item CacheItem)

// PayloadRewriter consumes a response's input stream at insertion time and
// returns a replacement Payload backed by the store's own storage. Returning
// (nil, nil) stores a payload-less cache item (headers + status only).
type PayloadRewriter func(key StorageKey, resp Response) (Payload, error)
