package internal

import "net/http"

// HeaderTransport is a RoundTripper that fills in default headers
// the request does not already carry
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	missing := false
	for key := range t.Headers {
		if req.Header.Get(key) == "" {
			missing = true
			break
		}
	}
	if missing {
		req = req.Clone(req.Context())
		for key, values := range t.Headers {
			if req.Header.Get(key) != "" {
				continue
			}
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
