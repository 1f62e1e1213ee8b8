package httpcache

import "net/url"

// NormalizeURI returns uri with its fragment stripped, for use as a storage
// or lock key. Per spec §4.9, "URIs are compared by normalised string
// equality; fragment is stripped." If uri fails to parse it is returned
// unchanged.
func NormalizeURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
