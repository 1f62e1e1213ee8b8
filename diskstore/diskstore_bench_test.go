package diskstore

import (
	"path/filepath"
	"testing"

	"github.com/cachestash/httpcache"
)

func benchRequest(i int) httpcache.Request {
	return httpcache.Request{URI: "http://example.com/" + string(rune('a'+i%128))}
}

func benchResponse(size int) httpcache.Response {
	return httpcache.Response{
		StatusCode: 200,
		Headers:    httpcache.Headers{}.Set("Cache-Control", "max-age=300"),
		Payload:    &httpcache.MemoryPayload{Bytes: make([]byte, size), Type: "application/octet-stream", Available: true},
	}
}

func newBenchStore(b *testing.B) *Store {
	b.Helper()
	dir := b.TempDir()
	s, err := New(filepath.Join(dir, "payloads"), filepath.Join(dir, "snapshot.gob"), 256, WithFlushInterval(0))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { s.Close() })
	return s
}

func benchmarkInsert(size int) func(b *testing.B) {
	return func(b *testing.B) {
		s := newBenchStore(b)
		resp := benchResponse(size)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			s.Insert(benchRequest(i), resp)
		}
	}
}

func BenchmarkStoreInsert(b *testing.B) {
	b.Run("Small", benchmarkInsert(512))
	b.Run("Realistic", benchmarkInsert(2048))
}

func benchmarkGet(size int) func(b *testing.B) {
	return func(b *testing.B) {
		s := newBenchStore(b)
		resp := benchResponse(size)
		for i := 0; i < 128; i++ {
			s.Insert(benchRequest(i), resp)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			s.Get(benchRequest(i % 192))
		}
	}
}

func BenchmarkStoreGet(b *testing.B) {
	b.Run("Small", benchmarkGet(512))
	b.Run("Realistic", benchmarkGet(2048))
}
