package selector

import "strings"

const (
	DefaultMinLongEdge = 2000
	DefaultMinBytes    = 300 * 1024
)

var (
	DefaultThumbHints = []string{
		"thumb", "thumbnail", "square", "poster", "preview", "small", "mini", "tile", "low", "tiny",
	}

	DefaultPreferredKeys = []string{
		"resoriginal", "original", "resjpegfull", "fullres", "master", "resfull", "publicsharegenericlarge",
	}

	DefaultVideoExts = []string{".mp4", ".mov", ".m4v", ".hevc"}
)

// Rules are the fixed thresholds and name lists that decide what counts as
// full size. A zero Rules is not usable; start from DefaultRules.
type Rules struct {
	MinLongEdge   int
	MinBytes      int64
	ThumbHints    []string
	PreferredKeys []string
	VideoExts     []string
}

func DefaultRules() Rules {
	return Rules{
		MinLongEdge:   DefaultMinLongEdge,
		MinBytes:      DefaultMinBytes,
		ThumbHints:    append([]string(nil), DefaultThumbHints...),
		PreferredKeys: append([]string(nil), DefaultPreferredKeys...),
		VideoExts:     append([]string(nil), DefaultVideoExts...),
	}
}

// IsThumbish reports whether s contains any thumbnail hint, ignoring case.
func (r Rules) IsThumbish(s string) bool {
	if s == "" {
		return false
	}
	low := strings.ToLower(s)
	for _, h := range r.ThumbHints {
		if h != "" && strings.Contains(low, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// IsVideo reports whether the URL path ends in a known video extension.
func (r Rules) IsVideo(url string) bool {
	low := strings.ToLower(stripQuery(url))
	for _, ext := range r.VideoExts {
		if ext != "" && strings.HasSuffix(low, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
