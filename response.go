package httpcache

// Response is a caller-scoped value describing an HTTP response: a status
// code, headers, and an optional Payload.
type Response struct {
	StatusCode int
	Headers    Headers
	Payload    Payload
}

// WithHeaders returns a copy of resp with its headers replaced.
func (resp Response) WithHeaders(h Headers) Response {
	resp.Headers = h
	return resp
}

// WithPayload returns a copy of resp with its payload replaced.
func (resp Response) WithPayload(p Payload) Response {
	resp.Payload = p
	return resp
}
