// Package catalog holds the hairstyle gallery and per-user favorites. Both
// are in-memory for now; the API shapes are stable so a database-backed
// implementation can slot in behind them.
package catalog

import (
	"errors"
	"sort"
	"sync"
)

// ErrStyleExists reports a duplicate style id on create.
var ErrStyleExists = errors.New("catalog: style already exists")

// Hairstyle is a gallery entry with localized display names.
type Hairstyle struct {
	ID           string            `json:"id"`
	Names        map[string]string `json:"-"`
	Tags         []string          `json:"tags"`
	ThumbnailURL string            `json:"thumbnailUrl"`
}

// View is the locale-resolved shape returned to clients.
type View struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags"`
	ThumbnailURL string   `json:"thumbnailUrl"`
}

func (h Hairstyle) view(locale string) View {
	name := h.Names[locale]
	if name == "" {
		name = h.Names["en"]
	}
	return View{ID: h.ID, Name: name, Tags: h.Tags, ThumbnailURL: h.ThumbnailURL}
}

// Catalog is a read-mostly set of hairstyles keyed by id.
type Catalog struct {
	mu     sync.RWMutex
	styles map[string]Hairstyle
}

// New builds a catalog seeded with the bundled gallery.
func New() *Catalog {
	c := &Catalog{styles: make(map[string]Hairstyle)}
	for _, style := range seedStyles {
		c.styles[style.ID] = style
	}
	return c
}

// List returns every style resolved for the given locale, sorted by id.
func (c *Catalog) List(locale string) []View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make([]View, 0, len(c.styles))
	for _, style := range c.styles {
		views = append(views, style.view(locale))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Get resolves a single style for the given locale.
func (c *Catalog) Get(id, locale string) (View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	style, ok := c.styles[id]
	if !ok {
		return View{}, false
	}
	return style.view(locale), true
}

// Add inserts a new style. The id must be unique.
func (c *Catalog) Add(style Hairstyle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.styles[style.ID]; ok {
		return ErrStyleExists
	}
	c.styles[style.ID] = style
	return nil
}

var seedStyles = []Hairstyle{
	{
		ID:           "pixie-cut",
		Names:        map[string]string{"en": "Pixie Cut", "es": "Corte Pixie"},
		Tags:         []string{"short", "bold"},
		ThumbnailURL: "https://example.com/hairstyles/pixie-cut.jpg",
	},
	{
		ID:           "soft-layers",
		Names:        map[string]string{"en": "Soft Layers", "es": "Capas Suaves"},
		Tags:         []string{"medium", "versatile"},
		ThumbnailURL: "https://example.com/hairstyles/soft-layers.jpg",
	},
	{
		ID:           "curtain-bangs",
		Names:        map[string]string{"en": "Curtain Bangs", "es": "Flequillo Cortina"},
		Tags:         []string{"bangs", "trendy"},
		ThumbnailURL: "https://example.com/hairstyles/curtain-bangs.jpg",
	},
	{
		ID:           "long-waves",
		Names:        map[string]string{"en": "Long Waves", "es": "Ondas Largas"},
		Tags:         []string{"long", "classic"},
		ThumbnailURL: "https://example.com/hairstyles/long-waves.jpg",
	},
}
