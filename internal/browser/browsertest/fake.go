// Package browsertest provides in-memory Launcher, Page and Element fakes so
// session and driver logic can be exercised without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-jobscout/internal/browser"
)

// Launcher hands out Pages built by NewPage, or one shared Page.
type Launcher struct {
	mu sync.Mutex

	// Page is returned on every launch when NewPage is nil.
	Page    *Page
	NewPage func(id browser.Identity) *Page
	Err     error

	Identities []browser.Identity
}

func (l *Launcher) Launch(ctx context.Context, id browser.Identity) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	l.Identities = append(l.Identities, id)
	if l.NewPage != nil {
		return l.NewPage(id), nil
	}
	if l.Page == nil {
		l.Page = NewPage()
	}
	l.Page.reopen()
	return l.Page, nil
}

func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Identities)
}

// Page serves Docs by URL and Elements by selector.
type Page struct {
	mu sync.Mutex

	url      string
	closed   bool
	Docs     map[string]string
	Elements map[string][]*Element

	// GotoErrs is consumed one entry per Goto call; nil entries succeed.
	GotoErrs   []error
	ContentErr error

	Gotos     []string
	Evaluated []string
	Shots     []string
	Closes    int
}

func NewPage() *Page {
	return &Page{
		Docs:     map[string]string{},
		Elements: map[string][]*Element{},
	}
}

func (p *Page) reopen() {
	p.mu.Lock()
	p.closed = false
	p.mu.Unlock()
}

// SetURL moves the page to url as if a link or form had been followed.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// Add registers elements under selector.
func (p *Page) Add(selector string, els ...*Element) *Page {
	p.mu.Lock()
	p.Elements[selector] = append(p.Elements[selector], els...)
	p.mu.Unlock()
	return p
}

func (p *Page) GotoCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Gotos)
}

func (p *Page) Goto(url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: page closed", browser.ErrSessionInvalid)
	}
	p.Gotos = append(p.Gotos, url)
	if len(p.GotoErrs) > 0 {
		err := p.GotoErrs[0]
		p.GotoErrs = p.GotoErrs[1:]
		if err != nil {
			return err
		}
	}
	p.url = url
	return nil
}

func (p *Page) WaitReady(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrSessionInvalid
	}
	return nil
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", browser.ErrSessionInvalid
	}
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.Docs[p.url], nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) WaitForSelector(selector string, _ time.Duration) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, browser.ErrSessionInvalid
	}
	els := p.lookup(selector)
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrTimeout, selector)
	}
	return els[0], nil
}

// lookup treats a comma separated selector list as alternatives, in order.
func (p *Page) lookup(selector string) []*Element {
	var out []*Element
	for _, part := range strings.Split(selector, ",") {
		out = append(out, p.Elements[strings.TrimSpace(part)]...)
	}
	return out
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, browser.ErrSessionInvalid
	}
	els := p.lookup(selector)
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (p *Page) Evaluate(script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Evaluated = append(p.Evaluated, script)
	return nil
}

func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Shots = append(p.Shots, path)
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.Closes++
	return nil
}

// Element records interactions. OnClick and OnPress run after a successful
// click or key press, typically to move the Page to a new URL.
type Element struct {
	mu sync.Mutex

	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	// StaleProbes is how many liveness probes report the node as detached.
	StaleProbes int
	ClickErr    error

	OnClick func()
	OnPress func(key string)

	Value    string
	Pressed  []string
	Clicks   int
	JSClicks int
	Probes   int
}

func (e *Element) Clear() error {
	e.mu.Lock()
	e.Value = ""
	e.mu.Unlock()
	return nil
}

func (e *Element) Fill(value string) error {
	e.mu.Lock()
	e.Value = value
	e.mu.Unlock()
	return nil
}

func (e *Element) Press(key string) error {
	e.mu.Lock()
	e.Pressed = append(e.Pressed, key)
	fn := e.OnPress
	e.mu.Unlock()
	if fn != nil {
		fn(key)
	}
	return nil
}

func (e *Element) Click(time.Duration) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		err := e.ClickErr
		e.mu.Unlock()
		return err
	}
	e.Clicks++
	fn := e.OnClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) ClickJS() error {
	e.mu.Lock()
	e.JSClicks++
	fn := e.OnClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) ScrollIntoView() error { return nil }

func (e *Element) Attribute(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Attrs[name], nil
}

func (e *Element) Visible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Hidden, nil
}

func (e *Element) Enabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Disabled, nil
}

func (e *Element) Attached() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Probes++
	if e.StaleProbes > 0 {
		e.StaleProbes--
		return false, browser.ErrStale
	}
	return true, nil
}
