package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// normalizeSource trims surrounding whitespace. Further normalization rules
// (e.g. query-param ordering) can be added later as needed.
func normalizeSource(s string) string {
	return strings.TrimSpace(s)
}

func normalizeHeaders(h Headers) string {
	if len(h) == 0 {
		return ""
	}
	folded := make(map[string][]string, len(h))
	for k, vs := range h {
		lk := strings.ToLower(k)
		folded[lk] = append(folded[lk], vs...)
	}
	keys := make([]string, 0, len(folded))
	for k := range folded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		vals := folded[k]
		sorted := append([]string(nil), vals...)
		sort.Strings(sorted)
		b.WriteString(strings.Join(sorted, ","))
		b.WriteByte(';')
	}
	return b.String()
}

// downloadFingerprint computes a stable hex-encoded SHA-256 over the fields
// spec.md §3 names as defining download-record identity: source URL, cache
// policy, headers, destination, and timeout. Two descriptors that hash to
// the same fingerprint are considered the same record.
func downloadFingerprint(d DownloadDescriptor) string {
	h := sha256.New()
	h.Write([]byte(normalizeSource(d.SourceURL)))
	h.Write([]byte{0})
	h.Write([]byte(d.CachePolicy))
	h.Write([]byte{0})
	h.Write([]byte(normalizeHeaders(d.Headers)))
	h.Write([]byte{0})
	h.Write([]byte(d.DestinationPath()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(d.TimeoutSeconds, 'f', 6, 64)))
	return hex.EncodeToString(h.Sum(nil))
}
