package render

import (
	"errors"
	"fmt"
	"html/template"

	"github.com/brayrpgs/portfolio/internal/carousel"
	"github.com/brayrpgs/portfolio/internal/filter"
	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/media"
)

var (
	// ErrNoCard is returned for a card index outside the current pass.
	ErrNoCard = errors.New("render: no such card")
	// ErrStalePass is returned when an event targets a card from a replaced pass.
	ErrStalePass = errors.New("render: card belongs to a previous render pass")
	// ErrNoCarousel is returned when navigating a card without images.
	ErrNoCarousel = errors.New("render: card has no images")
)

// Text is a language-tagged text element. The localization pass rewrites
// Value from Key; a missing key leaves Value as it was.
type Text struct {
	Key   string
	Value string
}

func (t *Text) String() string {
	if t == nil {
		return ""
	}
	return t.Value
}

// Paragraph is a composed paragraph (about, thoughts): Markdown source held
// in a tagged text element plus its rendered HTML.
type Paragraph struct {
	Text
	HTML template.HTML
}

// Page is the presentation tree for one page session.
type Page struct {
	Lang       i18n.Language
	LangToggle string
	Year       int

	Static   map[string]*Text
	About    *Paragraph
	Thoughts *Paragraph

	Filter []filter.Option
	Region Region
	// Loading marks a page whose dataset has not arrived yet; the client
	// polls for the finished page.
	Loading bool

	texts []*Text
}

// T returns the static text element for key, or nil.
func (p *Page) T(key string) *Text {
	if p == nil {
		return nil
	}
	return p.Static[key]
}

// Region is the project collection area. It is rebuilt from scratch on every
// render pass.
type Region struct {
	PassID    string
	NoResults bool
	Cards     []*Card

	texts []*Text
}

// Card returns the card at index (0-based) if it belongs to pass.
func (p *Page) Card(pass string, index int) (*Card, error) {
	if pass != "" && pass != p.Region.PassID {
		return nil, fmt.Errorf("%w: %s", ErrStalePass, pass)
	}
	if index < 0 || index >= len(p.Region.Cards) {
		return nil, fmt.Errorf("%w: %d", ErrNoCard, index)
	}
	return p.Region.Cards[index], nil
}

// Card is one rendered project.
type Card struct {
	ID       string
	Index    int
	Position int
	PassID   string

	Name        string
	Year        string
	Complexity  string
	Description string
	Stack       []string

	LiveLink string
	RepoLink string
	ShowLive bool
	ShowRepo bool

	LiveLabel       *Text
	RepoLabel       *Text
	PrevLabel       *Text
	NextLabel       *Text
	NoImages        *Text
	YearLabel       *Text
	ComplexityLabel *Text

	// Image is the displayed carousel frame; the carousel keeps it current.
	Image    string
	ImageAlt string
	Carousel *carousel.Carousel

	Media []media.Element
}

// HasImages reports whether the card shows a carousel rather than a placeholder.
func (c *Card) HasImages() bool { return c.Carousel != nil }

// ImageCount is the number of images in the carousel.
func (c *Card) ImageCount() int {
	if c.Carousel == nil {
		return 0
	}
	return c.Carousel.Len()
}

// ImageIndex is the 1-based position of the displayed image.
func (c *Card) ImageIndex() int {
	if c.Carousel == nil {
		return 0
	}
	return c.Carousel.Index() + 1
}

// Next shows the following image.
func (c *Card) Next() error {
	if c.Carousel == nil {
		return ErrNoCarousel
	}
	c.Carousel.Next()
	return nil
}

// Previous shows the preceding image.
func (c *Card) Previous() error {
	if c.Carousel == nil {
		return ErrNoCarousel
	}
	c.Carousel.Previous()
	return nil
}
