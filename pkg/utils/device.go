package utils

import "strings"

// DeviceInfo derives a short human-readable device label from a User-Agent
// string for the session audit log. It is intentionally coarse; the full
// user agent is stored alongside it.
func DeviceInfo(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return "Unknown"
	}

	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Other"
}
