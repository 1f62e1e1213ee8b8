package httpcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintNoVary(t *testing.T) {
	fp, cacheable := Fingerprint(Request{}, nil)
	require.True(t, cacheable)
	require.Empty(t, fp)
}

func TestFingerprintOrderIndependent(t *testing.T) {
	req := Request{Headers: Headers{}.Set("Accept", "json").Set("Accept-Language", "en")}
	fp1, _ := Fingerprint(req, []string{"Accept", "Accept-Language"})
	fp2, _ := Fingerprint(req, []string{"Accept-Language", "Accept"})
	require.Equal(t, fp1, fp2)
}

func TestFingerprintDiffersOnValue(t *testing.T) {
	vary := []string{"Accept"}
	fp1, _ := Fingerprint(Request{Headers: Headers{}.Set("Accept", "json")}, vary)
	fp2, _ := Fingerprint(Request{Headers: Headers{}.Set("Accept", "xml")}, vary)
	require.NotEqual(t, fp1, fp2)
}

func TestFingerprintWildcardNotCacheable(t *testing.T) {
	_, cacheable := Fingerprint(Request{}, []string{"*"})
	require.False(t, cacheable)
}

func TestVaryForbidsCaching(t *testing.T) {
	require.True(t, varyForbidsCaching([]string{"Accept", "*"}))
	require.False(t, varyForbidsCaching([]string{"Accept"}))
	require.False(t, varyForbidsCaching(nil))
}

func TestStorageKeyForNormalizesURI(t *testing.T) {
	key, ok := StorageKeyFor(Request{URI: "http://example.com/a#frag"}, nil)
	require.True(t, ok)
	require.Equal(t, "http://example.com/a", key.URI)
}

func TestStorageKeyForWildcardVaryNotOK(t *testing.T) {
	_, ok := StorageKeyFor(Request{URI: "http://example.com/a"}, []string{"*"})
	require.False(t, ok)
}
