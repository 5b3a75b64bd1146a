// Package render materializes the portfolio presentation tree from the
// current language, filter, and visible projects.
package render

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/brayrpgs/portfolio/internal/carousel"
	"github.com/brayrpgs/portfolio/internal/filter"
	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/media"
	"github.com/brayrpgs/portfolio/internal/projects"
)

// Keys of the static language-tagged elements.
var staticKeys = []string{
	"about_title",
	"contact_label",
	"filter_label",
	"filter_all",
	"projects_title",
	"no_projects",
	"thoughts_title",
}

const (
	aboutKey    = "about_text"
	thoughtsKey = "thoughts_text"

	defaultImageAlt = "project image"
)

// Orchestrator builds and refreshes pages. It holds no per-session state.
type Orchestrator struct {
	table  *i18n.Bundle
	md     *markdown
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for the footer year.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPassIDs overrides render pass id generation.
func WithPassIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New returns an orchestrator localizing through table.
func New(table *i18n.Bundle, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		table:  table,
		md:     newMarkdown(),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewPage builds the page shell in lang with an empty project region, which
// shows the "no projects" indicator until projects are rendered into it.
func (o *Orchestrator) NewPage(lang i18n.Language) *Page {
	p := &Page{
		Lang:   lang,
		Year:   o.now().Year(),
		Static: make(map[string]*Text, len(staticKeys)),
	}
	for _, key := range staticKeys {
		p.Static[key] = o.newText(&p.texts, key)
	}
	p.About = o.newParagraph(aboutKey)
	p.Thoughts = o.newParagraph(thoughtsKey)
	o.RenderProjects(p, nil, filter.Filter{}, nil)
	return p
}

// RenderProjects rebuilds the project region of p from scratch: the previous
// cards and their carousels are dropped, then one card per visible project is
// built in order, and the localization pass runs over the whole page.
func (o *Orchestrator) RenderProjects(p *Page, visible []projects.Project, f filter.Filter, techs projects.Set) {
	pass := o.newID()
	p.Region = Region{PassID: pass}
	p.Filter = f.Options(techs, p.T("filter_all").String())

	if len(visible) == 0 {
		p.Region.NoResults = true
	} else {
		p.Region.Cards = make([]*Card, 0, len(visible))
		for i, pr := range visible {
			p.Region.Cards = append(p.Region.Cards, o.buildCard(&p.Region, i, pr))
		}
	}
	o.Localize(p, p.Lang)
}

// Localize re-applies the localization table over every language-tagged
// element and both composed paragraphs. Elements whose key is missing for
// lang keep their text.
func (o *Orchestrator) Localize(p *Page, lang i18n.Language) {
	p.Lang = lang
	p.LangToggle = lang.ToggleLabel()
	for _, t := range p.texts {
		o.localizeText(t, lang)
	}
	for _, t := range p.Region.texts {
		o.localizeText(t, lang)
	}
	for _, para := range []*Paragraph{p.About, p.Thoughts} {
		if para == nil {
			continue
		}
		if o.localizeText(&para.Text, lang) {
			para.HTML = o.md.render(para.Value)
		}
	}
	if len(p.Filter) > 0 && p.Filter[0].Value == filter.All {
		p.Filter[0].Label = p.T("filter_all").String()
	}
}

func (o *Orchestrator) localizeText(t *Text, lang i18n.Language) bool {
	v, ok := o.table.Lookup(string(lang), t.Key)
	if !ok {
		return false
	}
	t.Value = v
	return true
}

// newText creates a tagged element holding the template default: the
// fallback language text, or the key itself.
func (o *Orchestrator) newText(into *[]*Text, key string) *Text {
	t := &Text{Key: key, Value: key}
	if o.table != nil {
		t.Value = o.table.T(o.table.Fallback(), key)
	}
	*into = append(*into, t)
	return t
}

func (o *Orchestrator) newParagraph(key string) *Paragraph {
	para := &Paragraph{Text: Text{Key: key, Value: key}}
	if o.table != nil {
		para.Value = o.table.T(o.table.Fallback(), key)
	}
	para.HTML = o.md.render(para.Value)
	return para
}

func (o *Orchestrator) buildCard(r *Region, index int, pr projects.Project) *Card {
	c := &Card{
		ID:          fmt.Sprintf("card-%s-%d", strings.ToLower(r.PassID), index),
		Index:       index,
		Position:    index + 1,
		PassID:      r.PassID,
		Name:        pr.DisplayName(index + 1),
		Year:        pr.Year.String(),
		Complexity:  pr.Complexity,
		Description: pr.Description,
		Stack:       slices.Clone(pr.Stack),
		LiveLink:    pr.LiveLink,
		RepoLink:    pr.RepoLink,
		ShowLive:    pr.LiveLink != "",
		ShowRepo:    pr.RepoLink != "",
	}
	c.LiveLabel = o.newText(&r.texts, "live_label")
	c.RepoLabel = o.newText(&r.texts, "repo_label")
	c.PrevLabel = o.newText(&r.texts, "prev_label")
	c.NextLabel = o.newText(&r.texts, "next_label")
	c.NoImages = o.newText(&r.texts, "no_images")
	c.YearLabel = o.newText(&r.texts, "year_label")
	c.ComplexityLabel = o.newText(&r.texts, "complexity_label")

	if len(pr.Images) > 0 {
		c.ImageAlt = pr.Name
		if strings.TrimSpace(c.ImageAlt) == "" {
			c.ImageAlt = defaultImageAlt
		}
		// cannot fail: images is non-empty
		c.Carousel, _ = carousel.New(pr.Images, func(src string) { c.Image = src })
	}

	c.Media = media.Elements(pr.Videos)
	for _, m := range c.Media {
		if m.Unresolved {
			o.logger.Debug("video reference has no id", zap.String("card", c.ID), zap.String("ref", m.Source))
		}
	}
	return c
}
