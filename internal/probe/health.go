package probe

import (
	"net/http"
	"time"
)

const DefaultHealthTimeout = 2 * time.Second

// HTTPHealth implements Health with a single GET carrying a short timeout.
// Any 2xx/3xx answer counts as reachable; timeouts, refused connections and
// 5xx all count as unreachable and are never surfaced as errors.
type HTTPHealth struct {
	Timeout time.Duration
}

func (h HTTPHealth) Reachable(url string) bool {
	if url == "" {
		return false
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 400
}
