// Package keys builds the Redis keys used by the render cache.
package keys

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	renderPrefix = "atlas:render"
	indexPrefix  = "atlas:idx"
)

// Render returns the key for a figure of kind drawn from dataset with the
// given request parameters. Parameter names are case-insensitive and their
// order does not matter; the order of repeated values does.
func Render(kind, dataset string, params url.Values) string {
	dataset = datasetName(dataset)
	canon := canonicalParams(params)

	const maxParamTextLen = 120
	readable := sanitizeForKey(canon)
	if len(readable) > maxParamTextLen {
		readable = readable[:maxParamTextLen]
	}

	sum := xxhash.Sum64String(kind + "\x00" + dataset + "\x00" + canon)
	return fmt.Sprintf("%s:%s:%s:%s:p=%016x",
		renderPrefix, sanitizeSegment(dataset), sanitizeSegment(kind), readable, sum)
}

// Index returns the key of the set holding every render key of dataset.
func Index(dataset string) string {
	return indexPrefix + ":" + sanitizeSegment(datasetName(dataset))
}

// "ecmwf.nc" and "ecmwf" share keys
func datasetName(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".nc")
}

// drops empty values and the cache-control params themselves
func canonicalParams(params url.Values) string {
	names := make([]string, 0, len(params))
	norm := make(map[string][]string, len(params))
	for k, vs := range params {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || k == "nocache" {
			continue
		}
		for _, v := range vs {
			if v = collapseASCIIWhitespace(v); v != "" {
				if _, seen := norm[k]; !seen {
					names = append(names, k)
				}
				norm[k] = append(norm[k], v)
			}
		}
	}
	slices.Sort(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(norm[k], ","))
	}
	return b.String()
}

func sanitizeForKey(s string) string {
	if s == "" {
		return "-"
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '=' || r == '&' || r == ',':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// segments never contain ':' so keys split unambiguously
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
