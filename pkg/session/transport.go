package session

import (
	"net/http"
	"time"
)

// Transport returns a round tripper that sends every request with the
// current access token and recovers from expired tokens.
func (c *Coordinator) Transport() http.RoundTripper {
	return &transport{coordinator: c}
}

// Client returns an HTTP client for protected API calls. A zero timeout
// means no client-side timeout.
func (c *Coordinator) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: c.Transport(),
		Timeout:   timeout,
	}
}

type transport struct {
	coordinator *Coordinator
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// a RoundTripper must not modify the caller's request
	out := req.Clone(req.Context())
	out.Body = req.Body

	t.coordinator.AttachCredentials(out)

	resp, err := t.coordinator.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	return t.coordinator.HandleResponseFailure(out, resp)
}
