// Package asset holds the remote media descriptors produced by an album
// listing. Descriptors are built fresh on every run and never persisted.
package asset

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Descriptor is one remote media item and its offered renditions.
type Descriptor struct {
	ID          string                `json:"-"`
	Location    string                `json:"url_location,omitempty"`
	Path        string                `json:"url_path,omitempty"`
	Derivatives map[string]Derivative `json:"derivatives,omitempty"`
}

// Keys returns the derivative keys in ascending order.
func (d Descriptor) Keys() []string {
	keys := make([]string, 0, len(d.Derivatives))
	for k := range d.Derivatives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Location    string                     `json:"url_location"`
		Path        string                     `json:"url_path"`
		Derivatives json.RawMessage `json:"derivatives"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// a derivatives value that is not an object leaves the asset without renditions
	var entries map[string]json.RawMessage
	if len(raw.Derivatives) > 0 {
		_ = json.Unmarshal(raw.Derivatives, &entries)
	}

	d.Location = raw.Location
	d.Path = raw.Path
	d.Derivatives = make(map[string]Derivative, len(entries))
	for k, msg := range entries {
		var deriv Derivative
		// non-object entries carry nothing usable
		if err := json.Unmarshal(msg, &deriv); err != nil {
			continue
		}
		d.Derivatives[k] = deriv
	}
	return nil
}

// Derivative is one rendition of an asset. Every field is optional.
type Derivative struct {
	URL      string
	Width    int
	Height   int
	Size     int64
	FileName string
	Type     string
}

// The catalog is loose about spelling and about numbers arriving as strings.
type rawDerivative struct {
	URL            string  `json:"url"`
	URLUpper       string  `json:"URL"`
	Width          flexInt `json:"width"`
	W              flexInt `json:"W"`
	Height         flexInt `json:"height"`
	H              flexInt `json:"H"`
	FileSize       flexInt `json:"fileSize"`
	Size           flexInt `json:"size"`
	FileName       string  `json:"fileName"`
	FileNameLower  string  `json:"filename"`
	DerivativeType string  `json:"derivativeType"`
	Type           string  `json:"type"`
}

func (d *Derivative) UnmarshalJSON(data []byte) error {
	var raw rawDerivative
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = Derivative{
		URL:      firstString(raw.URL, raw.URLUpper),
		Width:    int(firstInt(raw.Width, raw.W)),
		Height:   int(firstInt(raw.Height, raw.H)),
		Size:     firstInt(raw.FileSize, raw.Size),
		FileName: firstString(raw.FileName, raw.FileNameLower),
		Type:     firstString(raw.DerivativeType, raw.Type),
	}
	return nil
}

func (d Derivative) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if d.URL != "" {
		out["url"] = d.URL
	}
	if d.Width > 0 {
		out["width"] = d.Width
	}
	if d.Height > 0 {
		out["height"] = d.Height
	}
	if d.Size > 0 {
		out["fileSize"] = d.Size
	}
	if d.FileName != "" {
		out["fileName"] = d.FileName
	}
	if d.Type != "" {
		out["derivativeType"] = d.Type
	}
	return json.Marshal(out)
}

// flexInt decodes a JSON number or a numeric string. Anything else is zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(x)
		return nil
	}
	*f = 0
	return nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...flexInt) int64 {
	for _, v := range vals {
		if v != 0 {
			return int64(v)
		}
	}
	return 0
}
