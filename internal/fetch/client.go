package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	MaxImageSize   = 30 * 1024 * 1024
	DefaultTimeout = 30 * time.Second
	ConnectTimeout = 10 * time.Second
	userAgent      = "image-watermarker/1.0"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client retrieves remote images.
type Client interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type HTTPClient struct {
	client  Doer
	maxSize int64
}

var ErrPrivateAddress = errors.New("connection to private address is not allowed")

// NewHTTPClient returns a client that refuses to connect to loopback,
// link-local, private or unspecified addresses. The check runs at dial time,
// so it also covers redirects and hostnames resolving to internal hosts.
func NewHTTPClient() *HTTPClient {
	dialer := &net.Dialer{Timeout: ConnectTimeout}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			if len(ips) == 0 {
				return nil, fmt.Errorf("no addresses found for %s", host)
			}
			for _, ip := range ips {
				if isPrivateIP(ip.IP) {
					return nil, fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, ip.IP)
				}
			}

			// dial the address that was checked, not a fresh lookup
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &HTTPClient{
		client:  &http.Client{Transport: transport, Timeout: DefaultTimeout},
		maxSize: MaxImageSize,
	}
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast()
}

// Fetch issues a GET for url. The returned body is capped at MaxImageSize;
// reading past the cap yields an error rather than a truncated image.
func (c *HTTPClient) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	log.Debug().Str("url", url).Msg("retrieving image")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", url, err)
	}

	if res.StatusCode > 299 {
		_ = res.Body.Close()
		return nil, fmt.Errorf("http status response from %s: %s", url, res.Status)
	}

	if res.ContentLength > c.maxSize {
		_ = res.Body.Close()
		return nil, fmt.Errorf("image at %s too large: %d bytes (max %d)", url, res.ContentLength, c.maxSize)
	}

	return &limitedBody{
		Reader: io.LimitReader(res.Body, c.maxSize+1),
		closer: res.Body,
		limit:  c.maxSize,
		url:    url,
	}, nil
}

type limitedBody struct {
	io.Reader
	closer io.Closer
	read   int64
	limit  int64
	url    string
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return n, fmt.Errorf("image at %s exceeds %d bytes", b.url, b.limit)
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.closer.Close()
}
