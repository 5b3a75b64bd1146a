// Package media classifies project video references into natively playable
// sources and third-party embeds.
package media

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Kind says how a reference is presented.
type Kind string

const (
	Direct Kind = "direct"
	Embed  Kind = "embed"
)

// MaxPerProject is the number of videos shown on a card.
const MaxPerProject = 2

const (
	embedBase   = "https://www.youtube.com/embed/"
	shortDomain = "youtu.be"
	longDomain  = "youtube.com"
)

// IframeAllow is the permission list set on embedded players.
const IframeAllow = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"

// Resolved is the renderable form of a reference.
type Resolved struct {
	Kind   Kind
	Target string
	// Unresolved is set for an embed whose video id could not be found;
	// Target then ends in an empty id.
	Unresolved bool
}

// Classify resolves ref. It never fails: anything it cannot parse or does not
// recognise is returned unchanged as Direct.
func Classify(ref string) Resolved {
	direct := Resolved{Kind: Direct, Target: ref}
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return direct
	}
	switch registrableDomain(u.Hostname()) {
	case shortDomain:
		id, _, _ := strings.Cut(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
		return Resolved{Kind: Embed, Target: embedBase + id, Unresolved: id == ""}
	case longDomain:
		id := u.Query().Get("v")
		return Resolved{Kind: Embed, Target: embedBase + url.PathEscape(id), Unresolved: id == ""}
	default:
		return direct
	}
}

func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// Element is one media slot of a card.
type Element struct {
	Resolved
	Source string // the reference as authored
	Allow  string // iframe permissions, empty for Direct
}

// IsEmbed reports whether the element renders as an iframe.
func (e Element) IsEmbed() bool { return e.Kind == Embed }

// NewElement builds the media element for ref.
func NewElement(ref string) Element {
	r := Classify(ref)
	e := Element{Resolved: r, Source: ref}
	if r.Kind == Embed {
		e.Allow = IframeAllow
	}
	return e
}

// Elements builds elements for at most the first MaxPerProject references.
func Elements(refs []string) []Element {
	if len(refs) > MaxPerProject {
		refs = refs[:MaxPerProject]
	}
	out := make([]Element, 0, len(refs))
	for _, ref := range refs {
		out = append(out, NewElement(ref))
	}
	return out
}
