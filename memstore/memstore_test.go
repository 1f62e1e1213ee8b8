package memstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cachestash/httpcache"
)

func mkResp(t *testing.T, headers httpcache.Headers, body string) httpcache.Response {
	t.Helper()
	var payload httpcache.Payload = httpcache.NoPayload
	if body != "" {
		p, err := httpcache.NewMemoryPayload(strings.NewReader(body), "text/plain")
		require.NoError(t, err)
		payload = p
	}
	return httpcache.Response{StatusCode: 200, Headers: headers, Payload: payload}
}

func TestStoreInsertAndGet(t *testing.T) {
	s := New(10)
	req := httpcache.Request{URI: "http://example.com/a", Method: httpcache.MethodGet}
	resp := mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "hello")

	_, err := s.Insert(req, resp)
	require.NoError(t, err)

	item, ok := s.Get(req)
	require.True(t, ok)
	require.Equal(t, 200, item.Response.StatusCode)
	require.Equal(t, 1, s.Size())
}

func TestStoreGetMissOnDifferentVariant(t *testing.T) {
	s := New(10)
	req := httpcache.Request{URI: "http://example.com/a", Method: httpcache.MethodGet, Headers: httpcache.Headers{}.Set("Accept", "json")}
	resp := mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60").Set("Vary", "Accept"), "hello")
	_, err := s.Insert(req, resp)
	require.NoError(t, err)

	other := httpcache.Request{URI: "http://example.com/a", Method: httpcache.MethodGet, Headers: httpcache.Headers{}.Set("Accept", "xml")}
	_, ok := s.Get(other)
	require.False(t, ok)
}

func TestStoreUpdatePreservesPayload(t *testing.T) {
	s := New(10)
	req := httpcache.Request{URI: "http://example.com/a", Method: httpcache.MethodGet}
	_, err := s.Insert(req, mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "hello"))
	require.NoError(t, err)

	updated, err := s.Update(req, httpcache.Response{StatusCode: 200, Headers: httpcache.Headers{}.Set("Cache-Control", "max-age=120")})
	require.NoError(t, err)
	require.True(t, updated.Payload.HasPayload(), "Update must carry forward the previously stored payload")

	item, ok := s.Get(req)
	require.True(t, ok)
	require.Equal(t, "max-age=120", item.Response.Headers.Get("Cache-Control"))
}

func TestStoreUpdateNoMatchReturnsErrNotFound(t *testing.T) {
	s := New(10)
	_, err := s.Update(httpcache.Request{URI: "http://example.com/missing"}, httpcache.Response{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreInvalidateRemovesAllVariants(t *testing.T) {
	s := New(10)
	uri := "http://example.com/a"
	jsonReq := httpcache.Request{URI: uri, Headers: httpcache.Headers{}.Set("Accept", "json")}
	xmlReq := httpcache.Request{URI: uri, Headers: httpcache.Headers{}.Set("Accept", "xml")}
	varyResp := func() httpcache.Response {
		return mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60").Set("Vary", "Accept"), "x")
	}
	_, err := s.Insert(jsonReq, varyResp())
	require.NoError(t, err)
	_, err = s.Insert(xmlReq, varyResp())
	require.NoError(t, err)
	require.Equal(t, 2, s.Size())

	require.NoError(t, s.Invalidate(uri))
	require.Equal(t, 0, s.Size())
	_, ok := s.Get(jsonReq)
	require.False(t, ok)
}

func TestStoreClear(t *testing.T) {
	s := New(10)
	_, err := s.Insert(httpcache.Request{URI: "http://example.com/a"}, mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "x"))
	require.NoError(t, err)
	require.NoError(t, s.Clear())
	require.Equal(t, 0, s.Size())
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := New(2)
	a := httpcache.Request{URI: "http://example.com/a"}
	b := httpcache.Request{URI: "http://example.com/b"}
	c := httpcache.Request{URI: "http://example.com/c"}

	resp := func() httpcache.Response { return mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "x") }

	_, err := s.Insert(a, resp())
	require.NoError(t, err)
	_, err = s.Insert(b, resp())
	require.NoError(t, err)

	_, ok := s.Get(a) // touch a, making b the LRU victim
	require.True(t, ok)

	_, err = s.Insert(c, resp())
	require.NoError(t, err)

	require.Equal(t, 2, s.Size())
	_, ok = s.Get(b)
	require.False(t, ok, "b was least-recently-used and should have been evicted")
	_, ok = s.Get(a)
	require.True(t, ok)
	_, ok = s.Get(c)
	require.True(t, ok)
}

func TestStoreKeyListenerFiresOnEvictAndInvalidate(t *testing.T) {
	var evicted []httpcache.StorageKey
	s := New(1, WithKeyListener(func(key httpcache.StorageKey, _ httpcache.CacheItem) {
		evicted = append(evicted, key)
	}))

	resp := func() httpcache.Response { return mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "x") }
	_, err := s.Insert(httpcache.Request{URI: "http://example.com/a"}, resp())
	require.NoError(t, err)
	_, err = s.Insert(httpcache.Request{URI: "http://example.com/b"}, resp())
	require.NoError(t, err)
	require.Len(t, evicted, 1, "inserting beyond capacity should evict and notify exactly once")

	require.NoError(t, s.Invalidate("http://example.com/b"))
	require.Len(t, evicted, 2)
}

func TestStorePayloadRewriterOverridesCapture(t *testing.T) {
	var gotKey httpcache.StorageKey
	s := New(10, WithPayloadRewriter(func(key httpcache.StorageKey, resp httpcache.Response) (httpcache.Payload, error) {
		gotKey = key
		return httpcache.NoPayload, nil
	}))

	req := httpcache.Request{URI: "http://example.com/a"}
	stored, err := s.Insert(req, mkResp(t, httpcache.Headers{}.Set("Cache-Control", "max-age=60"), "body"))
	require.NoError(t, err)
	require.Equal(t, "http://example.com/a", gotKey.URI)
	require.False(t, stored.Payload.HasPayload(), "custom rewriter's NoPayload should be what gets stored")
}

func TestStoreRestoreInsertsWithoutRewriter(t *testing.T) {
	called := false
	s := New(10, WithPayloadRewriter(func(key httpcache.StorageKey, resp httpcache.Response) (httpcache.Payload, error) {
		called = true
		return httpcache.NoPayload, nil
	}))

	key := httpcache.StorageKey{URI: "http://example.com/a", Fingerprint: ""}
	item := httpcache.NewCacheItem(httpcache.Response{StatusCode: 200, Headers: httpcache.Headers{}.Set("Cache-Control", "max-age=60")}, time.Now())
	s.Restore(key, item)

	require.False(t, called, "Restore must not invoke the configured PayloadRewriter")
	require.Equal(t, 1, s.Size())

	got, ok := s.Get(httpcache.Request{URI: "http://example.com/a"})
	require.True(t, ok)
	require.Equal(t, 200, got.Response.StatusCode)
}
