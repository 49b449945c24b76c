package calendar

import "slices"

// DefaultColor is used when an event has no color of its own.
const DefaultColor = "#3788d8"

// DefaultTextColor is used for facet values without a text color.
const DefaultTextColor = "#ffffff"

// Facets is the fixed configuration of the classification dimension.
type Facets struct {
	Name        string            // "attendee" or "channel"
	Values      []string          // allowed values, in display order
	Colors      map[string]string // background chip color per value
	TextColors  map[string]string // text color per value
	Decorations map[string]string // short marker prefixed to titles
	Priority    []string          // stacking order; empty keeps store order
}

// AttendeeFacets is the attendee preset.
func AttendeeFacets() Facets {
	return Facets{
		Name:   "attendee",
		Values: []string{"콩", "밍깅", "밍콩콩"},
		Colors: map[string]string{
			"콩":   "#B4BDBD",
			"밍깅":  "#FBD7ED",
			"밍콩콩": "#EC7B87",
		},
		TextColors: map[string]string{
			"콩":   "#000000",
			"밍깅":  "#1f1f1f",
			"밍콩콩": "#ffffff",
		},
		Decorations: map[string]string{},
	}
}

// ChannelFacets is the channel preset. Channels are listed in stacking priority.
func ChannelFacets() Facets {
	values := []string{"youtube", "instagram", "blog", "tiktok"}
	return Facets{
		Name:   "channel",
		Values: values,
		Colors: map[string]string{
			"youtube":   "#FF0000",
			"instagram": "#C13584",
			"blog":      "#03C75A",
			"tiktok":    "#000000",
		},
		TextColors: map[string]string{
			"youtube":   "#ffffff",
			"instagram": "#ffffff",
			"blog":      "#ffffff",
			"tiktok":    "#ffffff",
		},
		Decorations: map[string]string{
			"youtube":   "[YT]",
			"instagram": "[IG]",
			"blog":      "[BL]",
			"tiktok":    "[TT]",
		},
		Priority: values,
	}
}

// FacetsByName returns the preset for the given facet name.
func FacetsByName(name string) Facets {
	if name == "channel" {
		return ChannelFacets()
	}
	return AttendeeFacets()
}

// Known reports whether v is a configured value.
func (f Facets) Known(v string) bool {
	return slices.Contains(f.Values, v)
}

// TextColor returns the text color for v.
func (f Facets) TextColor(v string) string {
	if c, ok := f.TextColors[v]; ok && c != "" {
		return c
	}
	return DefaultTextColor
}

// ResolveColor picks the color stored for a new event: an explicit custom
// color wins, otherwise the chip color of the facet value.
func (f Facets) ResolveColor(v, custom string) string {
	if custom != "" {
		return custom
	}
	if c, ok := f.Colors[v]; ok {
		return c
	}
	return DefaultColor
}
