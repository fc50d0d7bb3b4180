package domain

import "strings"

// Platform represents the social network a post URL belongs to
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter" // Twitter/X
	PlatformFacebook  Platform = "facebook"
)

// platformRule maps host fragments to a platform
type platformRule struct {
	platform  Platform
	fragments []string
}

// Evaluated in order, first match wins.
var platformRules = []platformRule{
	{platform: PlatformInstagram, fragments: []string{"instagram.com"}},
	{platform: PlatformTikTok, fragments: []string{"tiktok.com"}},
	{platform: PlatformTwitter, fragments: []string{"twitter.com", "x.com"}},
	{platform: PlatformFacebook, fragments: []string{"facebook.com"}},
}

// DetectPlatform detects the platform from a URL.
// It returns an empty Platform when no known host fragment is present.
func DetectPlatform(url string) Platform {
	lowered := strings.ToLower(url)
	for _, rule := range platformRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(lowered, fragment) {
				return rule.platform
			}
		}
	}
	return ""
}

// ValidatePlatform checks if a platform is valid
func ValidatePlatform(platform Platform) bool {
	for _, rule := range platformRules {
		if rule.platform == platform {
			return true
		}
	}
	return false
}

// SupportedPlatforms returns all platforms in detection order
func SupportedPlatforms() []Platform {
	platforms := make([]Platform, 0, len(platformRules))
	for _, rule := range platformRules {
		platforms = append(platforms, rule.platform)
	}
	return platforms
}

// IsBrowserDriven reports whether resolving the platform requires a headless browser
func (p Platform) IsBrowserDriven() bool {
	return p == PlatformInstagram || p == PlatformFacebook
}
