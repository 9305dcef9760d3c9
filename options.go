package bingart

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

const (
	defaultBaseURL    = "https://www.bing.com/images/create"
	defaultLanguage   = "en"
	defaultAuthMarker = `id="id_n"`

	defaultPollInterval     = 5 * time.Second
	defaultRichPollInterval = 3 * time.Second
)

// Logger is the logging surface used across the package.
type Logger interface {
	Log(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Log(string, ...any) {}

// Options configures a Client. Zero fields take the value from DefaultOptions.
type Options struct {
	// AuthCookie is the _U cookie. Required unless AutoCookie is set.
	AuthCookie string
	// SecondaryAuthCookie is the optional KievRPSSecAuth cookie.
	SecondaryAuthCookie string

	// AutoCookie discovers the auth cookie from CookieSource, trying Browsers in order.
	AutoCookie   bool
	CookieSource CookieSource
	Browsers     []string

	Proxy     string
	Profile   *BrowserProfile
	Transport TransportFactory

	// BaseURL is the image creator page; everything else hangs off it.
	BaseURL string
	// Language is written into the tracking cookie.
	Language string
	// AuthMarker must appear in the landing page of a signed-in session.
	AuthMarker string

	PollInterval     time.Duration
	RichPollInterval time.Duration

	// Extractors overrides the markup extractors, keyed by kind and model.
	Extractors *ExtractorSet

	// CheckBalance scrapes the boost balance on Initialize and drops image
	// requests to the slow lane when it is exhausted.
	CheckBalance bool

	Logger Logger
}

// DefaultOptions returns the values used for every unset Options field.
func DefaultOptions() Options {
	return Options{
		Browsers:         KnownBrowsers,
		Profile:          DefaultProfile,
		Transport:        NewHTTPClient,
		BaseURL:          defaultBaseURL,
		Language:         defaultLanguage,
		AuthMarker:       defaultAuthMarker,
		PollInterval:     defaultPollInterval,
		RichPollInterval: defaultRichPollInterval,
		Logger:           noopLogger{},
	}
}

// withDefaults fills unset fields of opts from DefaultOptions.
func withDefaults(opts Options) (Options, error) {
	if err := mergo.Merge(&opts, DefaultOptions()); err != nil {
		return opts, fmt.Errorf("failed to apply default options: %w", err)
	}
	if opts.CookieSource == nil {
		opts.CookieSource = DefaultCookieSource(GetCookieDir())
	}
	if opts.Extractors == nil {
		opts.Extractors = DefaultExtractors()
	}
	return opts, nil
}
