package httpx

import (
    "net"
    "net/http"
    "time"
)

// Client wraps http.Client with transport defaults sized for a single
// upstream API, and stamps a user agent on every request. It satisfies the
// gateway HTTPClient interface. Per-upstream headers belong to the gateway.
type Client struct {
    HTTP      *http.Client
    UserAgent string
}

func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy:                 http.ProxyFromEnvironment,
        DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          50,
        MaxIdleConnsPerHost:   20,
        MaxConnsPerHost:       20,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: 5 * time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "marketwatch/1.0"}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    return c.HTTP.Do(req)
}
