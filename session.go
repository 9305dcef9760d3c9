package bingart

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

var (
	igPattern      = regexp.MustCompile(`IG:"([^"]+)"`)
	saltPattern    = regexp.MustCompile(`Salt:"([^"]+)"`)
	eventIDPattern = regexp.MustCompile(`EventID:"([^"]+)"`)
	balancePattern = regexp.MustCompile(`id="token_bal"[^>]*>\s*(\d+)\s*<`)
)

// Session owns the transport, the cookies and the tokens scraped from the
// landing page. It has a single writer: the Client that created it.
type Session struct {
	transport Transport
	profile   *BrowserProfile
	logger    Logger

	baseURL    string
	origin     string
	site       *url.URL
	authMarker string
	language   string

	// Tokens scraped from the landing page's inline config.
	IG      string
	Salt    string
	EventID string

	// Balance is the boost count; BalanceKnown is false when it was not
	// requested or the page did not show it.
	Balance      int
	BalanceKnown bool

	checkBalance bool
	referer      string
	initialized  bool
	now          func() time.Time
}

func newSession(transport Transport, opts Options, cookies AuthCookies) (*Session, error) {
	site, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	origin := site.Scheme + "://" + site.Host

	s := &Session{
		transport:    transport,
		profile:      opts.Profile,
		logger:       opts.Logger,
		baseURL:      opts.BaseURL,
		origin:       origin,
		site:         &url.URL{Scheme: site.Scheme, Host: site.Host, Path: "/"},
		authMarker:   opts.AuthMarker,
		language:     opts.Language,
		checkBalance: opts.CheckBalance,
		referer:      opts.BaseURL,
		now:          time.Now,
	}

	s.setCookie(authCookieName, cookies.U)
	if cookies.Secondary != "" {
		s.setCookie(secondaryAuthCookieName, cookies.Secondary)
	}
	return s, nil
}

// cookieDomain for www.bing.com is .bing.com.
func (s *Session) cookieDomain() string {
	return "." + strings.TrimPrefix(s.site.Hostname(), "www.")
}

func (s *Session) setCookie(name, value string) {
	if value == "" {
		return
	}
	s.transport.SetCookies(s.site, []*http.Cookie{{
		Name:   name,
		Value:  value,
		Domain: s.cookieDomain(),
		Path:   "/",
	}})
}

// Initialized reports whether Initialize has completed at least once.
func (s *Session) Initialized() bool {
	return s.initialized
}

// Initialize fetches the landing page, checks that it belongs to a signed-in
// user, scrapes IG, Salt and EventID and rewrites the tracking cookie.
// Missing tokens are tolerated. Calling it again refreshes the tokens.
func (s *Session) Initialize(ctx context.Context) error {
	body, _, err := s.get(ctx, s.baseURL)
	if err != nil {
		return fmt.Errorf("failed to fetch landing page: %w", err)
	}

	if s.authMarker != "" && !strings.Contains(body, s.authMarker) {
		return newAuthCookieError("landing page is not signed in")
	}

	s.parseConfig(body)
	if s.checkBalance {
		s.parseBalance(body)
	}
	s.updateTrackingCookie()
	s.initialized = true

	s.logger.Log("Session ready (IG=%t Salt=%t EventID=%t)", s.IG != "", s.Salt != "", s.EventID != "")
	return nil
}

func (s *Session) parseConfig(html string) {
	if m := igPattern.FindStringSubmatch(html); len(m) == 2 {
		s.IG = m[1]
	}
	if m := saltPattern.FindStringSubmatch(html); len(m) == 2 {
		s.Salt = m[1]
	}
	if m := eventIDPattern.FindStringSubmatch(html); len(m) == 2 {
		s.EventID = m[1]
	}
}

func (s *Session) parseBalance(html string) {
	m := balancePattern.FindStringSubmatch(html)
	if len(m) != 2 {
		s.BalanceKnown = false
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		s.BalanceKnown = false
		return
	}
	s.Balance = n
	s.BalanceKnown = true
	s.logger.Log("Boost balance: %d", n)
}

// slowLane reports whether the balance check found no boosts left.
func (s *Session) slowLane() bool {
	return s.checkBalance && s.BalanceKnown && s.Balance == 0
}

func (s *Session) updateTrackingCookie() {
	value := fmt.Sprintf("SRCHLANG=%s&HV=%d&HVE=%s&IG=%s", s.language, s.now().Unix(), s.Salt, s.IG)
	s.setCookie(trackingCookieName, value)
}

// SetReferer changes the referer sent with every following request.
func (s *Session) SetReferer(referer string) {
	s.referer = referer
}

func (s *Session) absoluteURL(ref string) string {
	if strings.HasPrefix(ref, "/") {
		return s.origin + ref
	}
	return ref
}

// doRequest executes an HTTP request and logs the request path and response status.
func (s *Session) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	resp, err := s.transport.Do(req)
	if err != nil {
		s.logger.Log("%s %s -> error: %v", req.Method, req.URL.Path, err)
		return nil, err
	}
	s.logger.Log("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)
	return resp, nil
}

func (s *Session) get(ctx context.Context, target string) (string, *http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header = browserHeaders(s.profile, s.origin, s.referer, false)
	return s.roundTrip(ctx, req)
}

func (s *Session) postForm(ctx context.Context, target string, form url.Values) (string, *http.Response, error) {
	encoded := form.Encode()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(encoded))
	if err != nil {
		return "", nil, err
	}
	req.Header = browserHeaders(s.profile, s.origin, s.referer, true)
	return s.roundTrip(ctx, req)
}

func (s *Session) roundTrip(ctx context.Context, req *http.Request) (string, *http.Response, error) {
	resp, err := s.doRequest(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return "", resp, err
	}
	return string(body), resp, nil
}

func (s *Session) close() {
	s.transport.CloseIdleConnections()
}
