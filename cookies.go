package bingart

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	cookieDomain            = ".bing.com"
	authCookieName          = "_U"
	secondaryAuthCookieName = "KievRPSSecAuth"
	trackingCookieName      = "SRCHHPGUSR"
)

// KnownBrowsers is the order browsers are searched in by AutoFindCookie.
var KnownBrowsers = []string{
	"chrome",
	"edge",
	"firefox",
	"brave",
	"opera",
	"vivaldi",
	"chromium",
}

// CookieRecord is one cookie as reported by a browser store.
type CookieRecord struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// CookieSource returns every cookie a browser holds. A failure only means
// that browser is unavailable.
type CookieSource interface {
	Lookup(ctx context.Context, browser string) ([]CookieRecord, error)
}

// CookieSourceFunc adapts a function to CookieSource.
type CookieSourceFunc func(ctx context.Context, browser string) ([]CookieRecord, error)

func (f CookieSourceFunc) Lookup(ctx context.Context, browser string) ([]CookieRecord, error) {
	return f(ctx, browser)
}

// AuthCookies holds the cookies that authenticate a session.
type AuthCookies struct {
	U         string
	Secondary string
}

// AutoFindCookie walks browsers in order and returns the first _U cookie
// scoped to .bing.com. The secondary auth cookie is picked up from the same
// browser when it is there. Per-browser lookup errors are logged and skipped.
func AutoFindCookie(ctx context.Context, source CookieSource, browsers []string, logger Logger) (AuthCookies, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if len(browsers) == 0 {
		browsers = KnownBrowsers
	}

	for _, browser := range browsers {
		if err := ctx.Err(); err != nil {
			return AuthCookies{}, err
		}

		records, err := source.Lookup(ctx, browser)
		if err != nil {
			logger.Log("Cookie lookup in %s failed: %v", browser, err)
			continue
		}

		u, ok := scanCookies(records, authCookieName)
		if !ok {
			continue
		}
		secondary, _ := scanCookies(records, secondaryAuthCookieName)
		logger.Log("Found auth cookie in %s", browser)
		return AuthCookies{U: u, Secondary: secondary}, nil
	}

	return AuthCookies{}, newAuthCookieError("failed to fetch authentication cookies automatically")
}

func scanCookies(records []CookieRecord, name string) (string, bool) {
	for _, c := range records {
		if c.Domain == cookieDomain && c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// DirCookieSource reads cookie exports from a directory, one file per browser:
// <dir>/<browser>.json (array of {domain,name,value}) or <dir>/<browser>.txt
// (Netscape cookies.txt).
type DirCookieSource struct {
	Dir string
}

func (s DirCookieSource) Lookup(ctx context.Context, browser string) ([]CookieRecord, error) {
	jsonPath := filepath.Join(s.Dir, browser+".json")
	if f, err := os.Open(jsonPath); err == nil {
		defer f.Close()
		var records []CookieRecord
		if err := json.NewDecoder(f).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		return records, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	txtPath := filepath.Join(s.Dir, browser+".txt")
	f, err := os.Open(txtPath)
	if err != nil {
		return nil, fmt.Errorf("no cookie export for %s: %w", browser, err)
	}
	defer f.Close()
	return parseNetscapeCookies(f)
}

// parseNetscapeCookies parses the tab separated cookies.txt format:
// domain, include-subdomains, path, secure, expiry, name, value.
func parseNetscapeCookies(r io.Reader) ([]CookieRecord, error) {
	var records []CookieRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		records = append(records, CookieRecord{
			Domain: fields[0],
			Name:   fields[5],
			Value:  fields[6],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading cookie file: %w", err)
	}
	return records, nil
}
