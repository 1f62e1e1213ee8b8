// Package httpcache implements a client-side HTTP cache: a protocol engine
// that sits between a caller and a transport-level resolver and implements
// the storage and freshness semantics of RFC 9111 (which obsoletes RFC 7234).
//
// Given a Request, Engine.Resolve returns a stored, still-fresh Response; a
// revalidated Response obtained via a conditional request; or a freshly
// resolved Response, updating the configured Storage as a side effect.
//
// This package is transport-agnostic: it does not perform network I/O
// itself. Callers supply a Resolver that does, and a Storage implementation
// (memstore, diskstore, ristretto, or leveldb) that holds cached items.
package httpcache
