package bingart

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Image is one generated image.
type Image struct {
	URL string `json:"url"`
}

// ImageResult is a finished image job. Images is never empty.
type ImageResult struct {
	Images         []Image `json:"images"`
	EnhancedPrompt string  `json:"enhanced_prompt,omitempty"`
}

// VideoResult is a finished video job.
type VideoResult struct {
	VideoURL string `json:"video_url"`
}

type pollState int

const (
	statePending pollState = iota
	stateStreaming
	stateReady
)

func (s pollState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateStreaming:
		return "streaming"
	case stateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// poller drives the results endpoint for one request identifier. Attempts are
// strictly sequential and there is no attempt limit: the caller bounds the
// loop through ctx.
type poller struct {
	session      *Session
	extractors   *ExtractorSet
	interval     time.Duration
	richInterval time.Duration
}

func (p *poller) delayFor(model Model) time.Duration {
	if model.rich() {
		return p.richInterval
	}
	return p.interval
}

func (p *poller) resultsURL(id, prompt string) string {
	return fmt.Sprintf("%s/async/results/%s?%s&IG=%s",
		p.session.baseURL, url.PathEscape(id), url.Values{"q": {prompt}}.Encode(), url.QueryEscape(p.session.IG))
}

// classifyImages decides what one images response means. Rejections are
// handled by the caller before this runs.
func classifyImages(body string, extractor ImageExtractor, origin string) (pollState, ImageResult) {
	if !strings.Contains(body, partialReadyMarker) {
		return statePending, ImageResult{}
	}
	if extractor.Streaming(body) {
		return stateStreaming, ImageResult{}
	}

	var images []Image
	for _, ref := range extractor.ImageURLs(body) {
		images = append(images, Image{URL: NormalizeImageURL(ref, origin)})
	}
	// A rendered partial without images is still in progress.
	if len(images) == 0 {
		return statePending, ImageResult{}
	}

	return stateReady, ImageResult{
		Images:         images,
		EnhancedPrompt: extractor.Caption(body),
	}
}

// PollImages polls until the images partial is complete or rejected.
func (p *poller) PollImages(ctx context.Context, id, prompt string, model Model) (ImageResult, error) {
	target := p.resultsURL(id, prompt) + "&IID=images.as"
	extractor := p.extractors.ForImages(model)
	delay := p.delayFor(model)

	for attempt := 1; ; attempt++ {
		body, _, err := p.session.get(ctx, target)
		if err != nil {
			return ImageResult{}, fmt.Errorf("failed to poll images for %s: %w", id, err)
		}
		if err := checkRejected(body, prompt); err != nil {
			return ImageResult{}, err
		}

		state, result := classifyImages(body, extractor, p.session.origin)
		if state == stateReady {
			p.session.logger.Log("Request %s ready after %d attempts (%d images)", id, attempt, len(result.Images))
			return result, nil
		}
		p.session.logger.Log("Request %s %s (attempt %d)", id, state, attempt)

		if err := sleepCtx(ctx, delay); err != nil {
			return ImageResult{}, err
		}
	}
}

// PollVideo polls until the video is ready or rejected.
func (p *poller) PollVideo(ctx context.Context, id, prompt string) (VideoResult, error) {
	target := p.resultsURL(id, prompt) + "&ctype=video&sm=1&girftp=1"
	extractor := p.extractors.Video

	for attempt := 1; ; attempt++ {
		body, _, err := p.session.get(ctx, target)
		if err != nil {
			return VideoResult{}, fmt.Errorf("failed to poll video for %s: %w", id, err)
		}
		if err := checkRejected(body, prompt); err != nil {
			return VideoResult{}, err
		}

		if !extractor.Pending(body) {
			if videoURL, ok := extractor.VideoURL(body); ok {
				p.session.logger.Log("Video %s ready after %d attempts", id, attempt)
				return VideoResult{VideoURL: videoURL}, nil
			}
		}
		p.session.logger.Log("Video %s pending (attempt %d)", id, attempt)

		if err := sleepCtx(ctx, p.interval); err != nil {
			return VideoResult{}, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
