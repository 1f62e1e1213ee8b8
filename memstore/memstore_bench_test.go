package memstore

import (
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

func benchmarkInsert(size int) func(b *testing.B) {
	return func(b *testing.B) {
		s := New(256)
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
	b.Run("Large", benchmarkInsert(5.243e+6))
}

func benchmarkGet(size int) func(b *testing.B) {
	return func(b *testing.B) {
		s := New(256)
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
	b.Run("Large", benchmarkGet(5.243e+6))
}

// BenchmarkStoreParallelMixed exercises Insert/Get/Invalidate concurrently,
// the traffic pattern the engine's keyed mutex narrows per-URI concurrency
// down to, but many URIs are in flight at once across a process.
func BenchmarkStoreParallelMixed(b *testing.B) {
	s := New(256)
	resp := benchResponse(1024)

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			req := benchRequest(i)
			switch i % 3 {
			case 0:
				s.Insert(req, resp)
			case 1:
				s.Get(req)
			case 2:
				s.Invalidate(req.URI)
			}
			i++
		}
	})
}
