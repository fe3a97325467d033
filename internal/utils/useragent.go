package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"

	"github.com/hotelpms/hotel-backend/internal/models"
)

var tabletIndicators = []string{"ipad", "tablet", "kindle", "sm-t", "nexus 7", "nexus 9", "nexus 10"}

// ParseUserAgent extracts device information from a User-Agent string
func ParseUserAgent(userAgent string) models.DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return models.DeviceInfo{DeviceType: "unknown", Browser: "Unknown", OS: "Unknown"}
	}

	parser := ua.New(userAgent)

	info := models.DeviceInfo{
		DeviceType: deviceType(parser),
		Browser:    "Unknown",
		OS:         "Unknown",
	}
	if name, _ := parser.Browser(); name != "" {
		info.Browser = name
	}
	if osInfo := parser.OSInfo(); osInfo.Name != "" {
		info.OS = strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
	}
	return info
}

func deviceType(parser *ua.UserAgent) string {
	if parser.Bot() {
		return "bot"
	}
	if !parser.Mobile() {
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	for _, indicator := range tabletIndicators {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	return "mobile"
}
