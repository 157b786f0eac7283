package resilience

import (
	"net"
	"net/http"
	"time"
)

// TimeoutConfig centralises the outbound timeout values, organised by
// upstream endpoint family for easy auditing.
type TimeoutConfig struct {
	Action    EndpointTimeouts
	Pageviews EndpointTimeouts
	LiftWing  EndpointTimeouts
}

// EndpointTimeouts configures outbound HTTP behaviour for one endpoint family.
type EndpointTimeouts struct {
	// RequestTimeout is the overall request deadline (connect + read).
	RequestTimeout time.Duration
	// ConnectTimeout is the maximum time to establish a TCP connection.
	ConnectTimeout time.Duration
	// IdleConnTimeout is how long idle keep-alive connections survive.
	IdleConnTimeout time.Duration
}

// HTTPClient builds an http.Client honouring the endpoint timeouts. A
// non-zero requestTimeout overrides the configured request deadline.
func (t EndpointTimeouts) HTTPClient(requestTimeout time.Duration) *http.Client {
	if requestTimeout == 0 {
		requestTimeout = t.RequestTimeout
	}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext:     (&net.Dialer{Timeout: t.ConnectTimeout}).DialContext,
			IdleConnTimeout: t.IdleConnTimeout,
		},
	}
}

// DefaultTimeoutConfig returns production-safe defaults. Lift Wing inference
// is the slowest upstream and gets the widest request deadline.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Action: EndpointTimeouts{
			RequestTimeout:  15 * time.Second,
			ConnectTimeout:  5 * time.Second,
			IdleConnTimeout: 90 * time.Second,
		},
		Pageviews: EndpointTimeouts{
			RequestTimeout:  10 * time.Second,
			ConnectTimeout:  5 * time.Second,
			IdleConnTimeout: 90 * time.Second,
		},
		LiftWing: EndpointTimeouts{
			RequestTimeout:  30 * time.Second,
			ConnectTimeout:  5 * time.Second,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}
