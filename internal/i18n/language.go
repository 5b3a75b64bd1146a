package i18n

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is one of the two languages the presentation can be shown in.
type Language string

const (
	Primary   Language = "en"
	Secondary Language = "es"
)

// ParseLanguage maps a language code onto Primary or Secondary.
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Primary:
		return Primary, true
	case Secondary:
		return Secondary, true
	}
	return Primary, false
}

// Other returns the language the toggle switches to.
func (l Language) Other() Language {
	if l == Secondary {
		return Primary
	}
	return Secondary
}

// Tag returns the BCP 47 tag for l.
func (l Language) Tag() language.Tag {
	return language.Make(string(l))
}

// SelfName is the language's own name, title-cased ("English", "Español").
func (l Language) SelfName() string {
	tag := l.Tag()
	name := display.Self.Name(tag)
	if name == "" {
		return string(l)
	}
	return cases.Title(tag).String(name)
}

// ToggleLabel is the label of the language toggle while l is active. It names
// the other language so the control invites switching away.
func (l Language) ToggleLabel() string {
	return l.Other().SelfName()
}
