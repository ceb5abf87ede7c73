package webclient

import "time"

// Backend names the fetch implementation to use.
type Backend string

const (
	BackendNetHTTP  Backend = "nethttp"
	BackendChromedp Backend = "chromedp"
)

// Config selects and tunes a WebClient backend.
type Config struct {
	Backend Backend

	// Timeout bounds a single fetch (nethttp backend).
	Timeout time.Duration

	// IdleAfter is how long the network must stay quiet before a rendered
	// page is considered settled (chromedp backend).
	IdleAfter time.Duration

	// Headless controls browser visibility (chromedp backend).
	Headless bool
}

// DefaultConfig returns the nethttp backend with sensible timeouts.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendNetHTTP,
		Timeout:   30 * time.Second,
		IdleAfter: 2 * time.Second,
		Headless:  true,
	}
}
