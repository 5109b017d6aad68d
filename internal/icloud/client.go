// Package icloud lists the assets of a public iCloud shared album through
// the sharedstreams web API.
package icloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/raoulx24/album-mirror/internal/asset"
	"github.com/raoulx24/album-mirror/internal/httpx"
	"github.com/raoulx24/album-mirror/internal/logging"
)

const (
	DefaultHost = "p23-sharedstreams.icloud.com"

	// the partition redirect comes back as this status with the host in the body
	statusWrongPartition = 330
)

var ErrInvalidSharedURL = errors.New("shared album URL missing album id fragment (#...)")

// Poster is the slice of httpx.Client the lister uses.
type Poster interface {
	PostJSON(ctx context.Context, url string, v, out any) error
}

type Options struct {
	Host   string // initial sharedstreams host
	Scheme string // "https" unless testing
}

type Client struct {
	http   Poster
	host   string
	scheme string
	log    logging.Logger
}

func New(p Poster, opts Options, log logging.Logger) *Client {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	return &Client{http: p, host: opts.Host, scheme: opts.Scheme, log: log}
}

type streamRequest struct {
	StreamCtag *string `json:"streamCtag"`
}

type streamResponse struct {
	Host   string `json:"X-Apple-MMe-Host"`
	Photos []struct {
		PhotoGUID string `json:"photoGuid"`
	} `json:"photos"`
}

type assetURLsRequest struct {
	PhotoGUIDs []string `json:"photoGuids"`
}

type assetURLsResponse struct {
	Items map[string]json.RawMessage `json:"items"`
}

// AlbumID extracts the token after '#' in a shared album URL.
func AlbumID(sharedURL string) (string, error) {
	i := strings.LastIndex(sharedURL, "#")
	if i < 0 || i == len(sharedURL)-1 {
		return "", ErrInvalidSharedURL
	}
	return sharedURL[i+1:], nil
}

// ListAssets returns the album's descriptors in stream order.
func (c *Client) ListAssets(ctx context.Context, sharedURL string) ([]asset.Descriptor, error) {
	id, err := AlbumID(sharedURL)
	if err != nil {
		return nil, err
	}

	base := c.baseURL(c.host, id)
	stream, err := c.webstream(ctx, base)
	if err != nil {
		return nil, err
	}

	// one hop to the album's partition, never more
	if stream.Host != "" {
		c.log.Debug("album served from another host", "host", stream.Host)
		base = c.baseURL(stream.Host, id)
		if stream, err = c.webstream(ctx, base); err != nil {
			return nil, err
		}
	}

	var guids []string
	for _, p := range stream.Photos {
		if p.PhotoGUID != "" {
			guids = append(guids, p.PhotoGUID)
		}
	}
	if len(guids) == 0 {
		c.log.Info("no photos listed in stream")
		return nil, nil
	}

	var urls assetURLsResponse
	if err := c.http.PostJSON(ctx, base+"/webasseturls", assetURLsRequest{PhotoGUIDs: guids}, &urls); err != nil {
		return nil, fmt.Errorf("resolving asset urls: %w", err)
	}

	return ordered(guids, c.decodeItems(urls.Items)), nil
}

// decodeItems drops the items that do not decode so one bad asset costs
// only itself.
func (c *Client) decodeItems(items map[string]json.RawMessage) map[string]asset.Descriptor {
	out := make(map[string]asset.Descriptor, len(items))
	for id, msg := range items {
		var d asset.Descriptor
		if err := json.Unmarshal(msg, &d); err != nil {
			c.log.Warn("skipping undecodable asset", "asset", id, "error", err)
			continue
		}
		out[id] = d
	}
	return out
}

func (c *Client) webstream(ctx context.Context, base string) (streamResponse, error) {
	var out streamResponse
	err := c.http.PostJSON(ctx, base+"/webstream", streamRequest{}, &out)

	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == statusWrongPartition {
		if host := partitionHost(httpErr.Body); host != "" {
			return streamResponse{Host: host}, nil
		}
	}
	if err != nil {
		return out, fmt.Errorf("fetching webstream: %w", err)
	}
	return out, nil
}

func partitionHost(body []byte) string {
	var r streamResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	return r.Host
}

func (c *Client) baseURL(host, id string) string {
	return c.scheme + "://" + host + "/" + id + "/sharedstreams"
}

// ordered lays descriptors out in listing order; items the listing never
// named follow in key order.
func ordered(guids []string, items map[string]asset.Descriptor) []asset.Descriptor {
	out := make([]asset.Descriptor, 0, len(items))
	seen := make(map[string]struct{}, len(guids))

	for _, g := range guids {
		d, ok := items[g]
		if !ok {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		d.ID = g
		out = append(out, d)
	}

	var rest []string
	for k := range items {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		d := items[k]
		d.ID = k
		out = append(out, d)
	}
	return out
}

var _ Poster = (*httpx.Client)(nil)
