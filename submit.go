package bingart

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// rejectionMarkers are the content policy banners the service renders in
// place of a result.
var rejectionMarkers = []string{
	`data-clarity-tag="BlockedByContentPolicy"`,
	"girer_center block_icon",
}

var requestIDPattern = regexp.MustCompile(`id=([^&"]+)`)

// checkRejected returns a *PromptRejectedError when body carries a rejection marker.
func checkRejected(body, prompt string) error {
	for _, marker := range rejectionMarkers {
		if strings.Contains(body, marker) {
			return &PromptRejectedError{Prompt: prompt, Marker: marker}
		}
	}
	return nil
}

// Submit posts a built request and returns the request identifier.
//
// The identifier comes from the Location header, or from the body when the
// service answers inline. When a Location was given it is fetched once so the
// results endpoint is primed; only its rejection markers matter.
func (s *Session) Submit(ctx context.Context, prompt string, built BuiltRequest) (string, error) {
	s.SetReferer(built.Referer)

	target := s.baseURL + "?" + built.Query.Encode()
	body, resp, err := s.postForm(ctx, target, built.Body)
	if err != nil {
		return "", fmt.Errorf("failed to submit creation request: %w", err)
	}
	if err := checkRejected(body, prompt); err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	redirect := location
	if redirect == "" {
		redirect = strings.TrimSpace(body)
	}
	redirect = s.absoluteURL(redirect)

	m := requestIDPattern.FindStringSubmatch(redirect)
	if len(m) != 2 {
		return "", newAuthCookieError("no request id in creation response")
	}
	// The id is still query-escaped; resultsURL escapes it again for the path.
	id, err := url.PathUnescape(m[1])
	if err != nil {
		id = m[1]
	}

	if location != "" {
		primed, _, err := s.get(ctx, redirect)
		if err != nil {
			return "", fmt.Errorf("failed to follow creation redirect: %w", err)
		}
		if err := checkRejected(primed, prompt); err != nil {
			return "", err
		}
	}

	s.logger.Log("Submitted request %s", id)
	return id, nil
}
