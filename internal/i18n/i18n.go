package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Bundle is the static localization table: language code to display strings.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported map[string]struct{}
	matcher   language.Matcher
}

// Default loads the embedded table with en as fallback and es as the secondary language.
func Default() (*Bundle, error) {
	return LoadFS(embeddedLocales, "locales", string(Primary), []string{string(Primary), string(Secondary)})
}

// Load reads <dir>/<lang>.json for every supported language. An empty dir uses
// the embedded table.
func Load(dir string, fallback string, supported []string) (*Bundle, error) {
	if strings.TrimSpace(dir) == "" {
		return LoadFS(embeddedLocales, "locales", fallback, supported)
	}
	return LoadFS(os.DirFS(dir), ".", fallback, supported)
}

// LoadFS is Load over an arbitrary filesystem rooted at root.
func LoadFS(fsys fs.FS, root string, fallback string, supported []string) (*Bundle, error) {
	b := &Bundle{
		dict:      map[string]map[string]string{},
		fallback:  fallback,
		supported: map[string]struct{}{},
	}
	if len(supported) == 0 {
		supported = []string{string(Primary), string(Secondary)}
	}
	// the fallback tag goes first so the matcher prefers it on ties
	tags := []language.Tag{language.Make(fallback)}
	for _, l := range supported {
		b.supported[l] = struct{}{}
		if l != fallback {
			tags = append(tags, language.Make(l))
		}
		raw, err := fs.ReadFile(fsys, path.Join(root, l+".json"))
		if err != nil {
			// allow missing file for non-default locales
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.supported))
	for k := range b.supported {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// Lookup returns the display string for key in lang. It fails closed: when the
// key is absent for that language ok is false and callers keep their current text.
func (b *Bundle) Lookup(lang, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	m, ok := b.dict[lang]
	if !ok {
		return "", false
	}
	v, ok := m[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if v, ok := b.Lookup(lang, key); ok {
		return v
	}
	if v, ok := b.Lookup(b.fallback, key); ok {
		return v
	}
	return key
}

// Resolve chooses best language from Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	tag, _, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return b.fallback
	}
	base, _ := tag.Base()
	if _, ok := b.supported[base.String()]; ok {
		return base.String()
	}
	return b.fallback
}
