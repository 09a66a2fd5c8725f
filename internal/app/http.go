package app

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns an HTTP client. The scraper passes the configured
// SSLVerify; the LLM provider always gets a verifying client. When sslVerify
// is false, server certificates are not checked; the wiki is commonly served
// with an internal CA.
func newHTTPClient(sslVerify bool) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !sslVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
