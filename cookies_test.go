package bingart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoFindCookie(t *testing.T) {
	t.Run("first browser with a bing cookie wins", func(t *testing.T) {
		stores := map[string][]CookieRecord{
			"chrome": {{Domain: ".example.com", Name: "_U", Value: "wrong-site"}},
			"edge":   {{Domain: ".bing.com", Name: "_U", Value: "edge-u"}},
			"brave":  {{Domain: ".bing.com", Name: "_U", Value: "brave-u"}},
		}
		source := CookieSourceFunc(func(_ context.Context, browser string) ([]CookieRecord, error) {
			return stores[browser], nil
		})

		got, err := AutoFindCookie(context.Background(), source, nil, nil)
		require.NoError(t, err)
		require.Equal(t, AuthCookies{U: "edge-u"}, got)
	})

	t.Run("errors are skipped", func(t *testing.T) {
		source := CookieSourceFunc(func(_ context.Context, browser string) ([]CookieRecord, error) {
			if browser == "firefox" {
				return []CookieRecord{{Domain: ".bing.com", Name: "_U", Value: "ff"}}, nil
			}
			return nil, errors.New("locked")
		})

		got, err := AutoFindCookie(context.Background(), source, []string{"chrome", "firefox"}, nil)
		require.NoError(t, err)
		require.Equal(t, "ff", got.U)
	})

	t.Run("subdomain and empty values do not match", func(t *testing.T) {
		source := CookieSourceFunc(func(context.Context, string) ([]CookieRecord, error) {
			return []CookieRecord{
				{Domain: "www.bing.com", Name: "_U", Value: "sub"},
				{Domain: ".bing.com", Name: "_U", Value: ""},
			}, nil
		})

		_, err := AutoFindCookie(context.Background(), source, []string{"chrome"}, nil)
		require.True(t, IsAuthCookieError(err), "got %T: %v", err, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		source := CookieSourceFunc(func(context.Context, string) ([]CookieRecord, error) {
			t.Fatal("lookup after cancellation")
			return nil, nil
		})

		_, err := AutoFindCookie(ctx, source, nil, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDirCookieSource(t *testing.T) {
	dir := t.TempDir()

	jsonExport := `[{"domain":".bing.com","name":"_U","value":"json-u"},{"domain":".bing.com","name":"KievRPSSecAuth","value":"json-kiev"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chrome.json"), []byte(jsonExport), 0o600))

	netscape := "# Netscape HTTP Cookie File\n" +
		"\n" +
		"#HttpOnly_.bing.com\tTRUE\t/\tTRUE\t1999999999\t_U\ttxt-u\n" +
		".bing.com\tTRUE\t/\tFALSE\t1999999999\tMUID\tabc\n" +
		"malformed line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "firefox.txt"), []byte(netscape), 0o600))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "edge.json"), []byte("{not json"), 0o600))

	source := DirCookieSource{Dir: dir}
	ctx := context.Background()

	records, err := source.Lookup(ctx, "chrome")
	require.NoError(t, err)
	require.Len(t, records, 2)

	records, err = source.Lookup(ctx, "firefox")
	require.NoError(t, err)
	require.Equal(t, []CookieRecord{
		{Domain: ".bing.com", Name: "_U", Value: "txt-u"},
		{Domain: ".bing.com", Name: "MUID", Value: "abc"},
	}, records)

	_, err = source.Lookup(ctx, "edge")
	require.Error(t, err)

	_, err = source.Lookup(ctx, "opera")
	require.Error(t, err)

	got, err := AutoFindCookie(ctx, source, []string{"edge", "opera", "chrome"}, nil)
	require.NoError(t, err)
	require.Equal(t, AuthCookies{U: "json-u", Secondary: "json-kiev"}, got)
}
