package bingart

import (
	"net/url"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserProfile bundles a TLS client profile with its corresponding browser headers.
type BrowserProfile struct {
	TLSProfile profiles.ClientProfile
	UserAgent  string
	SecChUa    string
	Platform   string
	Mobile     string
}

// DefaultProfile is the browser profile used for new sessions.
// Set to Chrome143Profile in tls_chrome143.go.
var DefaultProfile = Chrome143Profile

// Transport is the slice of tls_client.HttpClient the session relies on.
// The session is its only writer.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
	SetCookies(u *url.URL, cookies []*http.Cookie)
	CloseIdleConnections()
}

// TransportFactory builds the transport for one client instance.
type TransportFactory func(logger tls_client.Logger, proxyURL string, profile *BrowserProfile) (Transport, error)

// NewHTTPClient returns a Chrome-fingerprinted client with its own cookie jar.
// Redirects are never followed: the submission step reads Location itself.
func NewHTTPClient(logger tls_client.Logger, proxyURL string, profile *BrowserProfile) (Transport, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}
	if profile == nil {
		profile = DefaultProfile
	}

	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profile.TLSProfile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	return tls_client.NewHttpClient(logger, options...)
}
