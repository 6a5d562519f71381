package config

import "github.com/dshills/reviewdeck/internal/review"

// Preset is a well-known review server offered when adding sites.
type Preset struct {
	Name string
	Site review.Site
}

// Presets lists the built-in site presets.
var Presets = []Preset{
	{
		Name: "Chromium",
		Site: review.Site{Label: "chromium", URL: "https://chromium-review.googlesource.com", Type: review.SiteTypeGerrit},
	},
	{
		Name: "Android AOSP",
		Site: review.Site{Label: "android-aosp", URL: "https://android-review.googlesource.com", Type: review.SiteTypeGerrit},
	},
}

// PresetByLabel returns the preset whose site label is label.
func PresetByLabel(label string) (Preset, bool) {
	for _, p := range Presets {
		if p.Site.Label == label {
			return p, true
		}
	}
	return Preset{}, false
}
