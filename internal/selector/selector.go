// Package selector reduces an asset's derivative renditions to the single
// best full-size URL, or to nothing when only thumbnails are on offer.
package selector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/raoulx24/album-mirror/internal/asset"
	"github.com/raoulx24/album-mirror/internal/logging"
)

// e.g. R4032x3024 or 3840X2160
var dimInKey = regexp.MustCompile(`(\d+)[xX](\d+)`)

// Candidate is a derivative that survived the thumbnail-hint filter.
type Candidate struct {
	Key    string
	URL    string
	Width  int
	Height int
	Size   int64
}

func (c Candidate) area() int64 { return int64(c.Width) * int64(c.Height) }

// Reason says which rule produced a selection.
type Reason string

const (
	ReasonPreferred Reason = "preferred"
	ReasonLargest   Reason = "largest"
	ReasonFallback  Reason = "fallback"
	ReasonNone      Reason = "none"
)

// Selection is the outcome for one asset.
type Selection struct {
	URL    string
	Key    string
	Reason Reason
}

type Selector struct {
	rules Rules
	log   logging.Logger
}

func New(rules Rules, log logging.Logger) *Selector {
	return &Selector{rules: rules, log: log}
}

// Select returns the URL to fetch for a, and false when nothing qualifies.
func (s *Selector) Select(a asset.Descriptor) (string, bool) {
	sel := s.Explain(a)
	return sel.URL, sel.Reason != ReasonNone
}

// Explain is Select with the reason and originating key attached.
func (s *Selector) Explain(a asset.Descriptor) Selection {
	candidates := s.Candidates(a)

	// preference list priority beats area
	for _, pref := range s.rules.PreferredKeys {
		for _, c := range candidates {
			if strings.EqualFold(c.Key, pref) && s.MeetsFloor(c) {
				return Selection{URL: c.URL, Key: c.Key, Reason: ReasonPreferred}
			}
		}
	}

	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if !s.MeetsFloor(*c) {
			continue
		}
		if best == nil || c.area() > best.area() || (c.area() == best.area() && c.Size > best.Size) {
			best = c
		}
	}
	if best != nil {
		return Selection{URL: best.URL, Key: best.Key, Reason: ReasonLargest}
	}

	// floor is checked by the fetcher for this one
	if a.Path != "" && !s.rules.IsThumbish(a.Path) {
		return Selection{URL: ResolveURL(a.Location, a.Path), Reason: ReasonFallback}
	}

	s.log.Debug("no full-size candidate", "asset", a.ID, "derivatives", len(a.Derivatives))
	return Selection{Reason: ReasonNone}
}

// Candidates lists the non-thumbnail derivatives of a in key order.
func (s *Selector) Candidates(a asset.Descriptor) []Candidate {
	var out []Candidate
	for _, key := range a.Keys() {
		if c, ok := s.candidate(key, a.Derivatives[key], a.Location); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Selector) candidate(key string, d asset.Derivative, location string) (Candidate, bool) {
	if d.URL == "" {
		return Candidate{}, false
	}
	url := ResolveURL(location, d.URL)

	for _, signal := range []string{key, d.FileName, d.Type, url} {
		if s.rules.IsThumbish(signal) {
			return Candidate{}, false
		}
	}

	w, h := d.Width, d.Height
	if w == 0 || h == 0 {
		if kw, kh := dimensionsFromKey(key); kw > 0 && kh > 0 {
			w, h = kw, kh
		}
	}

	return Candidate{Key: key, URL: url, Width: w, Height: h, Size: d.Size}, true
}

// MeetsFloor applies the full-size floor. Videos only need the size floor,
// and only when their size is known.
func (s *Selector) MeetsFloor(c Candidate) bool {
	sizeOK := c.Size == 0 || c.Size >= s.rules.MinBytes

	if s.rules.IsVideo(c.URL) {
		return sizeOK
	}
	return max(c.Width, c.Height) >= s.rules.MinLongEdge && sizeOK
}

func dimensionsFromKey(key string) (int, int) {
	m := dimInKey.FindStringSubmatch(key)
	if m == nil {
		return 0, 0
	}
	w, err1 := strconv.Atoi(m[1])
	h, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return w, h
}

// ResolveURL turns a path into an absolute URL on location. Absolute URLs
// pass through; without a location the path is returned unchanged.
func ResolveURL(location, path string) string {
	low := strings.ToLower(path)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		return path
	}
	if location == "" {
		return path
	}
	return "https://" + location + "/" + strings.TrimLeft(path, "/")
}
