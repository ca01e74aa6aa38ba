package sercop

import (
	"net/url"
	"strings"
)

// Query is an ordered list of query parameters.
// Parameters are encoded in the order they were added.
type Query struct {
	pairs [][2]string
}

// Add appends a parameter
func (q *Query) Add(key, value string) {
	q.pairs = append(q.pairs, [2]string{key, value})
}

// Get returns the first value for key
func (q Query) Get(key string) (string, bool) {
	for _, p := range q.pairs {
		if p[0] == key {
			return p[1], true
		}
	}
	return "", false
}

// Keys returns parameter names in insertion order
func (q Query) Keys() []string {
	keys := make([]string, 0, len(q.pairs))
	for _, p := range q.pairs {
		keys = append(keys, p[0])
	}
	return keys
}

// Encode returns the query in URL-encoded form ("a=1&b=x+y")
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p[0]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p[1]))
	}
	return sb.String()
}
