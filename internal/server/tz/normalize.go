// Package tz resolves the effective timezone of an entry through the
// override > user > server > fallback cascade.
package tz

import (
	"strings"
	"time"
)

// DefaultFallback is used when neither the user nor the guild has a zone.
const DefaultFallback = "Pacific/Auckland"

var aliases = map[string]string{
	"NZT":       "Pacific/Auckland",
	"NZDT":      "Pacific/Auckland",
	"AUCKLAND":  "Pacific/Auckland",
	"AEST":      "Australia/Sydney",
	"AEDT":      "Australia/Sydney",
	"SYDNEY":    "Australia/Sydney",
	"MELBOURNE": "Australia/Melbourne",
	"BRISBANE":  "Australia/Brisbane",
	"PERTH":     "Australia/Perth",
	"EST":       "America/New_York",
	"EDT":       "America/New_York",
	"PST":       "America/Los_Angeles",
	"PDT":       "America/Los_Angeles",
	"CST":       "America/Chicago",
	"CDT":       "America/Chicago",
	"GMT":       "Europe/London",
	"BST":       "Europe/London",
	"LONDON":    "Europe/London",
	"CET":       "Europe/Berlin",
	"CEST":      "Europe/Berlin",
}

// Normalize maps user text to a canonical IANA identifier. Region/City
// names must load as-is; anything else must be a known alias.
func Normalize(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if strings.Contains(text, "/") {
		if _, err := time.LoadLocation(text); err != nil {
			return "", false
		}
		return text, true
	}

	zone, ok := aliases[strings.ToUpper(text)]
	if !ok {
		return "", false
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", false
	}
	return zone, true
}

// Load is Normalize followed by time.LoadLocation.
func Load(text string) (*time.Location, bool) {
	zone, ok := Normalize(text)
	if !ok {
		return nil, false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, false
	}
	return loc, true
}
