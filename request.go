package bingart

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Model selects the upstream image pipeline. Values are the wire "mdl" codes.
type Model int

const (
	ModelDALLE Model = 0
	ModelGPT4O Model = 1
	ModelMAI1  Model = 4
)

var modelNames = map[Model]string{
	ModelDALLE: "DALLE",
	ModelGPT4O: "GPT4O",
	ModelMAI1:  "MAI1",
}

// body tokens for the "model" form field
var modelBodyTokens = map[Model]string{
	ModelDALLE: "dalle",
	ModelGPT4O: "gpt4o",
	ModelMAI1:  "maiimage1",
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return strconv.Itoa(int(m))
}

// rich reports whether the model renders incrementally and must be polled
// with the streaming-aware extractor.
func (m Model) rich() bool {
	return m == ModelGPT4O
}

// ParseModel accepts a model name as printed by String or its body token.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dalle":
		return ModelDALLE, nil
	case "gpt4o":
		return ModelGPT4O, nil
	case "mai1", "maiimage1":
		return ModelMAI1, nil
	}
	return ModelDALLE, fmt.Errorf("unknown model %q", s)
}

// Aspect selects the output aspect ratio. Values are the wire "ar" codes.
type Aspect int

const (
	AspectSquare    Aspect = 1
	AspectLandscape Aspect = 2
	AspectPortrait  Aspect = 3
)

var aspectNames = map[Aspect]string{
	AspectSquare:    "SQUARE",
	AspectLandscape: "LANDSCAPE",
	AspectPortrait:  "PORTRAIT",
}

var aspectBodyTokens = map[Aspect]string{
	AspectSquare:    "1:1",
	AspectLandscape: "7:4",
	AspectPortrait:  "4:7",
}

func (a Aspect) String() string {
	if name, ok := aspectNames[a]; ok {
		return name
	}
	return strconv.Itoa(int(a))
}

// ParseAspect accepts an aspect name or its ratio token.
func ParseAspect(s string) (Aspect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "square", "1:1":
		return AspectSquare, nil
	case "landscape", "7:4":
		return AspectLandscape, nil
	case "portrait", "4:7":
		return AspectPortrait, nil
	}
	return AspectSquare, fmt.Errorf("unknown aspect %q", s)
}

// ContentKind is what the request produces.
type ContentKind string

const (
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
)

// GenerationRequest is one call's immutable input.
type GenerationRequest struct {
	Prompt string
	Model  Model
	Aspect Aspect
	Kind   ContentKind
}

// BuiltRequest is the query string and form body for the create endpoint,
// plus the referer the session must present with it.
type BuiltRequest struct {
	Query   url.Values
	Body    url.Values
	Referer string
}

// BuildRequest maps a GenerationRequest to upstream parameters. It is pure:
// ig and the slow-lane flag are the only session inputs.
//
// Video ignores model and aspect; the service only offers one video pipeline.
// Unknown model or aspect values fall back to the default tokens.
func BuildRequest(req GenerationRequest, baseURL, ig string, slowLane bool) BuiltRequest {
	query := url.Values{
		"q":    {req.Prompt},
		"FORM": {"GENCRE"},
	}
	if ig != "" {
		query.Set("IG", ig)
	}

	if req.Kind == KindVideo {
		query.Set("rt", "3")
		query.Set("mdl", "0")
		query.Set("ar", "1")
		query.Set("ctype", "video")
		query.Set("pt", "3")
		query.Set("sm", "0")
		return BuiltRequest{
			Query:   query,
			Body:    formBody(req.Prompt, modelBodyTokens[ModelDALLE], aspectBodyTokens[AspectSquare]),
			Referer: baseURL + "?ctype=video",
		}
	}

	bodyModel, ok := modelBodyTokens[req.Model]
	if !ok {
		bodyModel = modelBodyTokens[ModelDALLE]
	}
	bodyAspect, ok := aspectBodyTokens[req.Aspect]
	if !ok {
		bodyAspect = aspectBodyTokens[AspectSquare]
	}

	rt := "4"
	if req.Model == ModelDALLE || slowLane {
		rt = "3"
	}

	query.Set("rt", rt)
	query.Set("mdl", strconv.Itoa(int(req.Model)))
	query.Set("ar", strconv.Itoa(int(req.Aspect)))

	return BuiltRequest{
		Query:   query,
		Body:    formBody(req.Prompt, bodyModel, bodyAspect),
		Referer: baseURL,
	}
}

func formBody(prompt, model, aspect string) url.Values {
	return url.Values{
		"q":           {prompt},
		"model":       {model},
		"aspectRatio": {aspect},
	}
}
