package fetch

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var dispositionName = regexp.MustCompile(`(?i)filename\*?=([^;]+)`)

// filenameFor picks the local name: the Content-Disposition file name when
// present, else the last segment of the URL path. "" means no usable name.
func filenameFor(disposition, rawURL string) string {
	if name := fromDisposition(disposition); name != "" {
		return name
	}
	return fromURL(rawURL)
}

func fromDisposition(cd string) string {
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		if name := clean(params["filename"]); name != "" {
			return name
		}
	}

	// servers send all sorts; take what follows filename=
	m := dispositionName.FindStringSubmatch(cd)
	if m == nil {
		return ""
	}
	raw := strings.Trim(strings.TrimSpace(m[1]), `"`)
	if i := strings.Index(raw, "''"); i >= 0 {
		if dec, err := url.PathUnescape(raw[i+2:]); err == nil {
			raw = dec
		}
	}
	return clean(raw)
}

func fromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return clean(u.Path)
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return clean(rawURL)
}

// clean keeps only the base name and refuses names that are not files.
func clean(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}
