package download

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cperrin88/mcfetch/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TransportOptions is the immutable network configuration of one manager.
type TransportOptions struct {
	// RequestTimeout bounds dialing, the TLS handshake and waiting for
	// response headers.
	RequestTimeout time.Duration
	// ResourceTimeout bounds a whole request including the body.
	ResourceTimeout time.Duration
	// Proxy is an optional proxy URL. Empty falls back to the environment.
	Proxy string
	// MaxConnsPerHost caps connections per host; zero means no limit.
	MaxConnsPerHost int
}

// NewClient builds the instrumented HTTP client used for downloads.
func NewClient(opts TransportOptions) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	if opts.Proxy != "" {
		parsed, err := url.Parse(opts.Proxy)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, errors.ErrInvalidConfigValWithDetails("proxy", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	if opts.RequestTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   opts.RequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = opts.RequestTimeout
		transport.ResponseHeaderTimeout = opts.RequestTimeout
	}
	if opts.MaxConnsPerHost > 0 {
		transport.MaxConnsPerHost = opts.MaxConnsPerHost
		transport.MaxIdleConnsPerHost = opts.MaxConnsPerHost
	}

	return &http.Client{
		Timeout:   opts.ResourceTimeout,
		Transport: otelhttp.NewTransport(transport),
	}, nil
}
