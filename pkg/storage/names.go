package storage

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var timestampSuffixRE = regexp.MustCompile(`_\d{10,}`)

// blobKey builds "<folder>/<basename>_<unix millis><ext>" for an upload.
func blobKey(folder, filename string, at time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := sanitizeBase(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	return fmt.Sprintf("%s/%s_%d%s", folder, base, at.UnixMilli(), ext)
}

func sanitizeBase(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-_")
	if out == "" {
		return "file"
	}
	return out
}

// OriginalNameFromURL recovers the client's file name from a blob URL by
// taking the last path segment and dropping the upload timestamp.
func OriginalNameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return timestampSuffixRE.ReplaceAllString(name, "")
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
