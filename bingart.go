// Package bingart drives the Bing Image Creator web UI with a browser-like
// session: it submits a prompt, polls the asynchronous results endpoint and
// returns the generated image or video URLs.
package bingart

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Generate after Close.
var ErrClosed = errors.New("bingart: client closed")

// Result is what Generate returns. Exactly one of Images and Video is set.
type Result struct {
	Kind   ContentKind  `json:"kind"`
	Images []Image      `json:"images,omitempty"`
	Video  *VideoResult `json:"video,omitempty"`
	// Prompt is the enhanced prompt when the service rewrote it, else the input.
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Aspect string `json:"aspect,omitempty"`
}

// Client owns one session. Generate calls on the same Client are serialized;
// use one Client per goroutine for parallel work.
type Client struct {
	mu      sync.Mutex
	session *Session
	poller  *poller
	logger  Logger
	closed  bool
}

// New resolves the auth cookie, opens the transport and initializes the
// session against the landing page.
func New(ctx context.Context, opts Options) (*Client, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}

	cookies, err := resolveCookies(ctx, opts)
	if err != nil {
		return nil, err
	}

	transport, err := opts.Transport(nil, opts.Proxy, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	session, err := newSession(transport, opts, cookies)
	if err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}

	c := &Client{
		session: session,
		logger:  opts.Logger,
		poller: &poller{
			session:      session,
			extractors:   opts.Extractors,
			interval:     opts.PollInterval,
			richInterval: opts.RichPollInterval,
		},
	}

	if err := session.Initialize(ctx); err != nil {
		session.close()
		return nil, err
	}
	return c, nil
}

func resolveCookies(ctx context.Context, opts Options) (AuthCookies, error) {
	if opts.AuthCookie != "" {
		return AuthCookies{U: opts.AuthCookie, Secondary: opts.SecondaryAuthCookie}, nil
	}
	if opts.AutoCookie {
		return AutoFindCookie(ctx, opts.CookieSource, opts.Browsers, opts.Logger)
	}
	return AuthCookies{}, newAuthCookieError("no auth cookie given and auto discovery disabled")
}

// Session exposes the client's session for inspection.
func (c *Client) Session() *Session {
	return c.session
}

// Generate submits one request and blocks until its result is ready, the
// prompt is rejected, or ctx ends.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if req.Kind == "" {
		req.Kind = KindImage
	}
	if req.Aspect == 0 {
		req.Aspect = AspectSquare
	}

	if !c.session.Initialized() {
		if err := c.session.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	built := BuildRequest(req, c.session.baseURL, c.session.IG, c.session.slowLane())
	id, err := c.session.Submit(ctx, req.Prompt, built)
	if err != nil {
		return nil, err
	}

	if req.Kind == KindVideo {
		video, err := c.poller.PollVideo(ctx, id, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: KindVideo, Video: &video, Prompt: req.Prompt}, nil
	}

	images, err := c.poller.PollImages(ctx, id, req.Prompt, req.Model)
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if images.EnhancedPrompt != "" {
		prompt = images.EnhancedPrompt
	}
	return &Result{
		Kind:   KindImage,
		Images: images.Images,
		Prompt: prompt,
		Model:  req.Model.String(),
		Aspect: req.Aspect.String(),
	}, nil
}

// Close releases the transport. Further Generate calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.session.close()
	return nil
}
