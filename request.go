package httpcache

// HTTP methods recognised by the cacheability classifier.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodPatch   = "PATCH"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
)

// Request is a caller-scoped value describing an HTTP request: a URI,
// method, headers, and an optional Payload.
type Request struct {
	URI     string
	Method  string
	Headers Headers
	Payload Payload
}

// WithHeaders returns a copy of r with its headers replaced.
func (r Request) WithHeaders(h Headers) Request {
	r.Headers = h
	return r
}

// safeMethods do not mutate server state.
var safeMethods = map[string]bool{
	MethodGet:     true,
	MethodHead:    true,
	MethodOptions: true,
	MethodTrace:   true,
}

// cacheableMethods are eligible to have their response stored.
var cacheableMethods = map[string]bool{
	MethodGet:  true,
	MethodHead: true,
}

// IsSafe reports whether the request's method does not mutate server state.
func (r Request) IsSafe() bool { return safeMethods[r.Method] }

// IsCacheableMethod reports whether the request's method is eligible to
// have its response stored (GET, HEAD).
func (r Request) IsCacheableMethod() bool { return cacheableMethods[r.Method] }

// IsUnsafe reports whether the request's method mutates server state.
func (r Request) IsUnsafe() bool { return !r.IsSafe() }
