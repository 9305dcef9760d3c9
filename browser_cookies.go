package bingart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultBrowserLookupTimeout = 30 * time.Second

// chromiumDataDirs are the user data directories of Chromium-family browsers,
// relative to the per-OS base returned by browserDataBase.
var chromiumDataDirs = map[string]map[string]string{
	"linux": {
		"chrome":   "google-chrome",
		"chromium": "chromium",
		"edge":     "microsoft-edge",
		"brave":    "BraveSoftware/Brave-Browser",
		"vivaldi":  "vivaldi",
		"opera":    "opera",
	},
	"darwin": {
		"chrome":   "Google/Chrome",
		"chromium": "Chromium",
		"edge":     "Microsoft Edge",
		"brave":    "BraveSoftware/Brave-Browser",
		"vivaldi":  "Vivaldi",
		"opera":    "com.operasoftware.Opera",
	},
	"windows": {
		"chrome":   "Google/Chrome/User Data",
		"chromium": "Chromium/User Data",
		"edge":     "Microsoft/Edge/User Data",
		"brave":    "BraveSoftware/Brave-Browser/User Data",
		"vivaldi":  "Vivaldi/User Data",
	},
}

var chromiumExecutables = map[string]map[string]string{
	"linux": {
		"chrome":   "google-chrome",
		"chromium": "chromium",
		"edge":     "microsoft-edge",
		"brave":    "brave-browser",
		"vivaldi":  "vivaldi",
		"opera":    "opera",
	},
	"darwin": {
		"chrome":   "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"chromium": "/Applications/Chromium.app/Contents/MacOS/Chromium",
		"edge":     "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		"brave":    "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		"vivaldi":  "/Applications/Vivaldi.app/Contents/MacOS/Vivaldi",
		"opera":    "/Applications/Opera.app/Contents/MacOS/Opera",
	},
	"windows": {
		"chrome": `C:\Program Files\Google\Chrome\Application\chrome.exe`,
		"edge":   `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		"brave":  `C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
	},
}

// profileFiles are copied from the live profile; the browser keeps its own
// copy locked while running.
var profileFiles = []string{
	"Cookies",
	"Network/Cookies",
}

// BrowserCookieSource reads cookies from an installed Chromium-family browser.
// It copies the profile's cookie store to a temporary user data directory,
// starts the browser headless on it and asks DevTools for the site's cookies.
// Browsers without a known data directory (firefox) fail the lookup, which
// AutoFindCookie treats as "not available".
type BrowserCookieSource struct {
	// UserDataDirs and ExecPaths override the per-OS defaults, keyed by browser.
	UserDataDirs map[string]string
	ExecPaths    map[string]string
	// Profile is the profile directory name. Defaults to "Default".
	Profile string
	// SiteURL is the URL whose cookies are requested.
	SiteURL string
	Timeout time.Duration

	launch func(ctx context.Context, execPath, userDataDir, siteURL string) ([]CookieRecord, error)
}

func (s *BrowserCookieSource) Lookup(ctx context.Context, browser string) ([]CookieRecord, error) {
	dataDir := s.userDataDir(browser)
	if dataDir == "" {
		return nil, fmt.Errorf("no cookie store known for %s", browser)
	}

	profile := s.Profile
	if profile == "" {
		profile = "Default"
	}
	profileDir := filepath.Join(dataDir, profile)
	if _, err := os.Stat(profileDir); err != nil {
		return nil, fmt.Errorf("%s profile not found: %w", browser, err)
	}

	tempDir, err := os.MkdirTemp("", "bingart-"+browser+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp profile: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := copyProfile(dataDir, profileDir, tempDir); err != nil {
		return nil, err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultBrowserLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	siteURL := s.SiteURL
	if siteURL == "" {
		siteURL = "https://www.bing.com"
	}
	launch := s.launch
	if launch == nil {
		launch = readChromiumCookies
	}
	return launch(ctx, s.execPath(browser), tempDir, siteURL)
}

func (s *BrowserCookieSource) userDataDir(browser string) string {
	if dir, ok := s.UserDataDirs[browser]; ok {
		return dir
	}
	rel, ok := chromiumDataDirs[runtime.GOOS][browser]
	if !ok {
		return ""
	}
	base, err := browserDataBase()
	if err != nil {
		return ""
	}
	return filepath.Join(base, filepath.FromSlash(rel))
}

// browserDataBase is ~/.config on Linux, ~/Library/Application Support on
// macOS and %LOCALAPPDATA% on Windows.
func browserDataBase() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return "", errors.New("LOCALAPPDATA is not set")
	}
	return os.UserConfigDir()
}

// execPath returns "" to let chromedp find a browser itself.
func (s *BrowserCookieSource) execPath(browser string) string {
	if path, ok := s.ExecPaths[browser]; ok {
		return path
	}
	name, ok := chromiumExecutables[runtime.GOOS][browser]
	if !ok {
		return ""
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

// copyProfile lays out a minimal user data directory in dst: Local State
// (it holds the cookie encryption key) and the profile's cookie store.
func copyProfile(dataDir, profileDir, dst string) error {
	defaultDir := filepath.Join(dst, "Default")
	if err := os.MkdirAll(filepath.Join(defaultDir, "Network"), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	if err := copyFile(filepath.Join(dataDir, "Local State"), filepath.Join(dst, "Local State")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("copy Local State: %w", err)
	}

	copied := 0
	for _, name := range profileFiles {
		src := filepath.Join(profileDir, filepath.FromSlash(name))
		if err := copyFile(src, filepath.Join(defaultDir, filepath.FromSlash(name))); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("copy %s: %w", name, err)
		}
		copied++
	}
	if copied == 0 {
		return fmt.Errorf("no cookie store in %s", profileDir)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readChromiumCookies(ctx context.Context, execPath, userDataDir, siteURL string) ([]CookieRecord, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-extensions", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{siteURL}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}

	records := make([]CookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, CookieRecord{Domain: c.Domain, Name: c.Name, Value: c.Value})
	}
	return records, nil
}

// DefaultCookieSource reads exports from dir first, then the installed browser.
func DefaultCookieSource(dir string) CookieSource {
	return CookieSources{DirCookieSource{Dir: dir}, &BrowserCookieSource{}}
}

// CookieSources asks every source and merges their records in order. It fails
// only when every source fails.
type CookieSources []CookieSource

func (cs CookieSources) Lookup(ctx context.Context, browser string) ([]CookieRecord, error) {
	var (
		records []CookieRecord
		errs    []error
	)
	for _, source := range cs {
		found, err := source.Lookup(ctx, browser)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, found...)
	}
	if len(errs) == len(cs) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}
