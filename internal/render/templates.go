package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Slot templates a template set must define.
var requiredTemplates = []string{"page", "main", "filter", "projects", "project-card", "carousel", "media"}

// View is the data passed to page-level templates.
type View struct {
	*Page
	CSRF string
}

// CardView is the data passed to card-level templates.
type CardView struct {
	*Card
	CSRF string
}

var funcMap = template.FuncMap{
	"cardView": func(c *Card, csrf string) CardView { return CardView{Card: c, CSRF: csrf} },
}

// Templates is the card/page template collaborator. With an empty dir the
// embedded set is used. In dev mode templates are reparsed on every render.
type Templates struct {
	dir string
	dev bool

	mu     sync.RWMutex
	cached *template.Template
}

// LoadTemplates parses the template set and checks that every slot template
// is defined.
func LoadTemplates(dir string, dev bool) (*Templates, error) {
	t := &Templates{dir: strings.TrimSpace(dir), dev: dev}
	tc, err := t.parse()
	if err != nil {
		return nil, err
	}
	t.cached = tc
	return t, nil
}

func (t *Templates) parse() (*template.Template, error) {
	root := template.New("_root").Funcs(funcMap)
	var (
		tc  *template.Template
		err error
	)
	if t.dir == "" {
		tc, err = root.ParseFS(embeddedTemplates, "templates/*.tmpl")
	} else {
		tc, err = parseDir(root, t.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range requiredTemplates {
		if tc.Lookup(name) == nil {
			return nil, fmt.Errorf("parse templates: slot template %q not defined", name)
		}
	}
	return tc, nil
}

// parseDir recursively discovers and parses all .tmpl files. ParseGlob doesn't support **.
func parseDir(root *template.Template, dir string) (*template.Template, error) {
	var files []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", dir)
	}
	return root.ParseFiles(files...)
}

func (t *Templates) set() (*template.Template, error) {
	if t.dev {
		tc, err := t.parse()
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.cached = tc
		t.mu.Unlock()
		return tc, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cached, nil
}

// Component renders the named template with data.
func (t *Templates) Component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		set, err := t.set()
		if err != nil {
			return err
		}
		tmpl := set.Lookup(name)
		if tmpl == nil {
			return fmt.Errorf("render: template %q not defined", name)
		}
		return templ.FromGoHTML(tmpl, data).Render(ctx, w)
	})
}

// Page renders the whole document.
func (t *Templates) Page(p *Page, csrf string) templ.Component {
	return t.Component("page", View{Page: p, CSRF: csrf})
}

// Main renders the swappable application root (language and filter changes).
func (t *Templates) Main(p *Page, csrf string) templ.Component {
	return t.Component("main", View{Page: p, CSRF: csrf})
}

// Carousel renders one card's carousel (image navigation).
func (t *Templates) Carousel(c *Card, csrf string) templ.Component {
	return t.Component("carousel", CardView{Card: c, CSRF: csrf})
}
