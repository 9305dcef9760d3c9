package bingart

import (
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// pseudoHeaderOrder is the HTTP/2 pseudo-header order Chrome sends.
var pseudoHeaderOrder = []string{
	":method",
	":authority",
	":scheme",
	":path",
}

const (
	acceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	formEncoded    = "application/x-www-form-urlencoded"
)

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}

// browserHeaders is the fixed header set every request of a session carries.
// referer is the only field that changes between calls.
func browserHeaders(profile *BrowserProfile, origin, referer string, form bool) http.Header {
	h := http.Header{
		"authority":                 {authorityOf(origin)},
		"accept":                    {acceptDocument},
		"accept-encoding":           {"gzip, deflate, br, zstd"},
		"accept-language":           {"en-US,en;q=0.9"},
		"origin":                    {origin},
		"referer":                   {referer},
		"sec-ch-ua":                 {profile.SecChUa},
		"sec-ch-ua-mobile":          {profile.Mobile},
		"sec-ch-ua-platform":        {profile.Platform},
		"sec-fetch-dest":            {"document"},
		"sec-fetch-mode":            {"navigate"},
		"sec-fetch-site":            {"same-origin"},
		"upgrade-insecure-requests": {"1"},
		"user-agent":                {profile.UserAgent},
		http.HeaderOrderKey: {
			"authority",
			"content-length",
			"content-type",
			"upgrade-insecure-requests",
			"user-agent",
			"accept",
			"origin",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-dest",
			"sec-ch-ua",
			"sec-ch-ua-mobile",
			"sec-ch-ua-platform",
			"referer",
			"accept-encoding",
			"accept-language",
			"cookie",
		},
		http.PHeaderOrderKey: pseudoHeaderOrder,
	}
	if form {
		h["content-type"] = []string{formEncoded}
	}
	return h
}

func authorityOf(origin string) string {
	return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
}
