package bingart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://www.bing.com"

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://th.bing.com/th/id/OIG1.abc?w=270&h=270&c=6", "https://th.bing.com/th/id/OIG1.abc?pid=ImgGn"},
		{"/th/id/OIG2.def?w=270", "https://www.bing.com/th/id/OIG2.def?pid=ImgGn"},
		{"//th.bing.com/th/id/OIG3.ghi", "https://th.bing.com/th/id/OIG3.ghi?pid=ImgGn"},
		{"https://th.bing.com/th/id/OIG4.jkl", "https://th.bing.com/th/id/OIG4.jkl?pid=ImgGn"},
	}
	for _, tt := range tests {
		got := NormalizeImageURL(tt.in, testOrigin)
		require.Equal(t, tt.want, got)
		require.Equal(t, got, NormalizeImageURL(got, testOrigin), "normalizing twice must not change %q", got)
	}
}

func TestCDNImageExtractor(t *testing.T) {
	body := `<style type="text/css"></style>
<div class="img_cont"><img class="mimg" src="https://tse1.mm.bing.net/th/id/OIG.aaa?foo=bar" alt="one"/></div>
<div class="img_cont"><img class="mimg" src="https://tse2.mm.bing.net/th/id/OIG.bbb?foo=bar" alt="two"/></div>
<img src="/rp/logo.svg"/>`

	x := cdnImageExtractor{}
	require.False(t, x.Streaming(body))
	require.Equal(t, []string{
		"https://tse1.mm.bing.net/th/id/OIG.aaa?foo=bar",
		"https://tse2.mm.bing.net/th/id/OIG.bbb?foo=bar",
	}, x.ImageURLs(body))

	state, res := classifyImages(body, x, testOrigin)
	require.Equal(t, stateReady, state)
	want := []Image{
		{URL: "https://tse1.mm.bing.net/th/id/OIG.aaa?pid=ImgGn"},
		{URL: "https://tse2.mm.bing.net/th/id/OIG.bbb?pid=ImgGn"},
	}
	if diff := cmp.Diff(want, res.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
}

func TestRichImageExtractor(t *testing.T) {
	x := richImageExtractor{}

	t.Run("absolute sources", func(t *testing.T) {
		body := `<img src="https://th.bing.com/th/id/OIG.one?w=1"/><img src="https://th.bing.com/th/id/OIG.two"/><img src="/th/id/OIG.rel"/>`
		require.Equal(t, []string{
			"https://th.bing.com/th/id/OIG.one?w=1",
			"https://th.bing.com/th/id/OIG.two",
		}, x.ImageURLs(body))
	})

	t.Run("relative fallback", func(t *testing.T) {
		body := `<img src="/th/id/OIG.rel1?w=2"/><img src="/rp/icon.png"/>`
		require.Equal(t, []string{"/th/id/OIG.rel1?w=2"}, x.ImageURLs(body))
	})

	t.Run("streaming", func(t *testing.T) {
		require.True(t, x.Streaming(`<div class="imgri-inner-container strm">`))
		require.False(t, x.Streaming(`<div class="imgri-inner-container">`))
	})
}

func TestCaptionFromMarkup(t *testing.T) {
	t.Run("data-selcap wins", func(t *testing.T) {
		body := `<div data-selcap="A vivid red fox"></div><img class="image-row-img mimg" alt="other"/>`
		require.Equal(t, "A vivid red fox", captionFromMarkup(body))
	})

	t.Run("empty data-selcap is skipped", func(t *testing.T) {
		body := `<div data-selcap=""></div><div data-selcap="Enhanced fox"></div><img class="image-row-img mimg" alt="plain alt"/>`
		require.Equal(t, "Enhanced fox", captionFromMarkup(body))
	})

	t.Run("alt fallback", func(t *testing.T) {
		body := `<img class="image-row-img mimg" alt=""/><img class="image-row-img mimg" alt="A fox at dawn"/>`
		require.Equal(t, "A fox at dawn", captionFromMarkup(body))
	})

	t.Run("absent", func(t *testing.T) {
		require.Empty(t, captionFromMarkup(`<img class="mimg" alt="not a row"/>`))
	})
}

func TestClassifyImages(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		extractor ImageExtractor
		want      pollState
	}{
		{"empty body", "", cdnImageExtractor{}, statePending},
		{"no partial marker", `<img src="https://th.bing.com/th/id/OIG.a?w=1"/>`, cdnImageExtractor{}, statePending},
		{"partial without images", `<style type="text/css"></style>`, cdnImageExtractor{}, statePending},
		{"rich still streaming", `<style type="text/css"></style><div class="imgri-inner-container strm"><img src="https://th.bing.com/th/id/OIG.a"/></div>`, richImageExtractor{}, stateStreaming},
		{"rich ready", `<style type="text/css"></style><img src="https://th.bing.com/th/id/OIG.a"/>`, richImageExtractor{}, stateReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := classifyImages(tt.body, tt.extractor, testOrigin)
			require.Equal(t, tt.want, got)
			if got != stateReady {
				require.Empty(t, res.Images)
			}
		})
	}
}

func TestExtractorSet(t *testing.T) {
	set := DefaultExtractors()
	require.IsType(t, richImageExtractor{}, set.ForImages(ModelGPT4O))
	require.IsType(t, cdnImageExtractor{}, set.ForImages(ModelDALLE))
	require.IsType(t, cdnImageExtractor{}, set.ForImages(ModelMAI1))
}

func TestVideoExtractor(t *testing.T) {
	x := markupVideoExtractor{}

	t.Run("pending", func(t *testing.T) {
		body := `{"errorMessage":"Pending","showContent":""}`
		require.True(t, x.Pending(body))
	})

	t.Run("json showContent", func(t *testing.T) {
		body := `{"showContent":"https://cdn.example/v.mp4","errorMessage":""}`
		require.False(t, x.Pending(body))
		got, ok := x.VideoURL(body)
		require.True(t, ok)
		require.Equal(t, "https://cdn.example/v.mp4", got)
	})

	t.Run("ourl markup", func(t *testing.T) {
		got, ok := x.VideoURL(`<div class="vid" ourl="https://cdn.example/m.mp4"></div>`)
		require.True(t, ok)
		require.Equal(t, "https://cdn.example/m.mp4", got)
	})

	t.Run("invalid json falls through to ourl", func(t *testing.T) {
		got, ok := x.VideoURL(`showContent <div ourl="https://cdn.example/f.mp4">`)
		require.True(t, ok)
		require.Equal(t, "https://cdn.example/f.mp4", got)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, ok := x.VideoURL(`{"showContent":""}`)
		require.False(t, ok)
		_, ok = x.VideoURL(`not json showContent`)
		require.False(t, ok)
	})
}
