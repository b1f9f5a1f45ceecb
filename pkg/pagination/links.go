package pagination

import (
	"net/http"
	"strings"
)

// ParseLinks parses every Link header value into a rel -> target map. A link
// with several relation types ("next last") is registered under each of them.
// The first link seen for a relation wins.
func ParseLinks(h http.Header) map[string]string {
	links := make(map[string]string)
	for _, value := range h.Values("Link") {
		for _, part := range splitLinkValue(value) {
			target, rels, ok := parseLink(part)
			if !ok {
				continue
			}
			for _, rel := range rels {
				if _, seen := links[rel]; !seen {
					links[rel] = target
				}
			}
		}
	}
	return links
}

// NextLink returns the rel="next" target, if any.
func NextLink(h http.Header) (string, bool) {
	next, ok := ParseLinks(h)["next"]
	return next, ok && next != ""
}

// splitLinkValue splits a header value on commas outside <...> and quotes.
func splitLinkValue(value string) []string {
	var (
		parts   []string
		inAngle bool
		inQuote bool
		start   int
	)
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '<':
			if !inQuote {
				inAngle = true
			}
		case '>':
			if !inQuote {
				inAngle = false
			}
		case '"':
			if !inAngle {
				inQuote = !inQuote
			}
		case ',':
			if !inAngle && !inQuote {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}

// parseLink parses `<target>; rel="a b"; other=x`.
func parseLink(part string) (string, []string, bool) {
	part = strings.TrimSpace(part)
	if !strings.HasPrefix(part, "<") {
		return "", nil, false
	}
	end := strings.Index(part, ">")
	if end < 0 {
		return "", nil, false
	}
	target := strings.TrimSpace(part[1:end])

	var rels []string
	for _, param := range strings.Split(part[end+1:], ";") {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		rels = append(rels, strings.Fields(strings.ToLower(value))...)
	}

	return target, rels, len(rels) > 0
}
