package bingart

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

const testLandingPage = `<!DOCTYPE html><html><head>
<script type="text/javascript">var _G={Region:"US",Lang:"en-US",ST:(typeof si_ST!=='undefined'?si_ST:new Date),Mkt:"en-US",RevIpCC:"us",RTL:false,Ver:"21",IG:"A1B2C3D4E5",EventID:"67f0c0ffee",V:"images",P:"images",DA:"BN2",SUIH:"x",adc:"b_ad",EF:{},gpUrl:"\/fd\/ls\/GLinkPing.aspx?",Salt:"CfDJ8Salt"};</script>
</head><body>
<header><a id="id_l" href="#"><span id="id_n" class="id_name">Ada</span></a></header>
<div id="token_bal" aria-label="boosts">0</div>
</body></html>`

const testSignedOutPage = `<!DOCTYPE html><html><head>
<script>var _G={IG:"A1B2C3D4E5",Salt:"CfDJ8Salt"};</script>
</head><body><a id="id_l" href="/fd/auth/signin">Sign in</a></body></html>`

type recordedRequest struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Body    string
	Cookies map[string]string
}

// fakeTransport serves canned responses from handler and records every request.
type fakeTransport struct {
	mu       sync.Mutex
	handler  func(req recordedRequest) *http.Response
	requests []recordedRequest
	cookies  map[string]*http.Cookie
	closed   bool
}

func newFakeTransport(handler func(req recordedRequest) *http.Response) *fakeTransport {
	return &fakeTransport{handler: handler, cookies: map[string]*http.Cookie{}}
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	var body string
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(b)
	}

	f.mu.Lock()
	jar := make(map[string]string, len(f.cookies))
	for name, c := range f.cookies {
		jar[name] = c.Value
	}
	rec := recordedRequest{Method: req.Method, URL: req.URL, Header: req.Header, Body: body, Cookies: jar}
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	resp := f.handler(rec)
	resp.Request = req
	return resp, nil
}

func (f *fakeTransport) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range cookies {
		f.cookies[c.Name] = c
	}
}

func (f *fakeTransport) CloseIdleConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeTransport) cookie(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cookies[name]; ok {
		return c.Value
	}
	return ""
}

func (f *fakeTransport) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// requestsTo returns the recorded requests whose path contains fragment.
func (f *fakeTransport) requestsTo(fragment string) []recordedRequest {
	var out []recordedRequest
	for _, r := range f.recorded() {
		if strings.Contains(r.URL.Path, fragment) {
			out = append(out, r)
		}
	}
	return out
}

func respond(status int, body string, headers ...string) *http.Response {
	h := http.Header{}
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], headers[i+1])
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// sequence returns successive bodies, repeating the last one.
func sequence(bodies ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		b := bodies[i]
		if i < len(bodies)-1 {
			i++
		}
		return b
	}
}

func testOptions(ft *fakeTransport) Options {
	return Options{
		AuthCookie:       "test-u-cookie",
		PollInterval:     time.Millisecond,
		RichPollInterval: time.Millisecond,
		Transport: func(tls_client.Logger, string, *BrowserProfile) (Transport, error) {
			return ft, nil
		},
	}
}

// newTestSession builds a session on ft without touching the network.
func newTestSession(t *testing.T, ft *fakeTransport, mutate func(*Options)) *Session {
	t.Helper()
	opts := testOptions(ft)
	if mutate != nil {
		mutate(&opts)
	}
	opts, err := withDefaults(opts)
	if err != nil {
		t.Fatalf("failed to apply defaults: %v", err)
	}
	s, err := newSession(ft, opts, AuthCookies{U: opts.AuthCookie, Secondary: opts.SecondaryAuthCookie})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

func newTestPoller(s *Session) *poller {
	return &poller{
		session:      s,
		extractors:   DefaultExtractors(),
		interval:     time.Millisecond,
		richInterval: time.Millisecond,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
