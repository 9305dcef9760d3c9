package bingart

import "os"

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X bingart.authCookie=YOUR_U_COOKIE"
var (
	authCookie string // -X bingart.authCookie=...
)

// GetAuthCookie returns the _U cookie (build-time or env fallback).
func GetAuthCookie() string {
	if authCookie != "" {
		return authCookie
	}
	return os.Getenv("BING_U")
}

// GetSecondaryAuthCookie returns the KievRPSSecAuth cookie from the environment.
func GetSecondaryAuthCookie() string {
	return os.Getenv("BING_KIEV")
}

// GetProxy returns the proxy URL from the environment.
func GetProxy() string {
	return os.Getenv("BING_PROXY")
}

// GetCookieDir returns the directory holding per-browser cookie exports.
func GetCookieDir() string {
	if dir := os.Getenv("BINGART_COOKIE_DIR"); dir != "" {
		return dir
	}
	return "cookies"
}
