// Package pagetest provides a scriptable in-memory Page implementation so the
// interaction logic can be exercised without a real browser.
package pagetest

import (
	"context"
	"sync"

	"github.com/ysmood/gson"

	"plexd/internal/browser"
)

// Point records one raw pointer coordinate.
type Point struct {
	X, Y float64
}

// Element is a fake DOM node. Zero value is an invisible, empty node.
type Element struct {
	mu sync.Mutex

	TextVal    string
	VisibleVal bool
	Attrs      map[string]string

	ClickErr error
	InputErr error
	TextErr  error

	Clicks    int
	Hovers    int
	Inputs    []string
	Selected  int
	OnClick   func()
	EvalFn    func(js string, args ...interface{}) (gson.JSON, error)
}

var _ browser.Element = (*Element)(nil)

func (e *Element) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.TextVal, e.TextErr
}

func (e *Element) Input(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.InputErr != nil {
		return e.InputErr
	}
	e.Inputs = append(e.Inputs, text)
	e.TextVal = text
	return nil
}

func (e *Element) SelectAllText() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Selected++
	return nil
}

func (e *Element) Click() error {
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) Hover() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Hovers++
	return nil
}

func (e *Element) Visible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.VisibleVal, nil
}

func (e *Element) Attribute(name string) (*string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Attrs == nil {
		return nil, nil
	}
	v, ok := e.Attrs[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (e *Element) Eval(js string, args ...interface{}) (gson.JSON, error) {
	e.mu.Lock()
	fn := e.EvalFn
	e.mu.Unlock()
	if fn != nil {
		return fn(js, args...)
	}
	return gson.New(nil), nil
}

// Page is a fake browser page. Selectors resolve against Els; JS evaluation
// is routed to EvalFn when set.
type Page struct {
	mu sync.Mutex

	URLVal  string
	HTMLVal string

	Els    map[string][]*Element
	Frames map[string]*Page

	EvalFn       func(js string, args ...interface{}) (gson.JSON, error)
	NavigateFn   func(url string) error
	ClickAtFn    func(x, y float64) error
	Clipboard    string
	ClipboardErr error

	Navigations []string
	Moves       []Point
	ClickPoints []Point
	Screenshots int
}

var _ browser.Page = (*Page)(nil)

// Set registers elements under a selector, replacing previous matches.
func (p *Page) Set(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Els == nil {
		p.Els = make(map[string][]*Element)
	}
	p.Els[selector] = els
}

// Remove clears a selector's matches.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Els, selector)
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	fn := p.NavigateFn
	p.Navigations = append(p.Navigations, url)
	if fn == nil {
		p.URLVal = url
	}
	p.mu.Unlock()
	if fn != nil {
		return fn(url)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URLVal
}

// SetURL updates the reported address, e.g. after a fake submission.
func (p *Page) SetURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URLVal = u
}

func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTMLVal, nil
}

func (p *Page) Element(selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.Els[selector]
	if len(els) == 0 {
		return nil, browser.ErrNoElement
	}
	return els[0], nil
}

func (p *Page) Elements(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.Els[selector]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (p *Page) Frame(selector string) (browser.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.Frames[selector]
	if !ok {
		return nil, browser.ErrNoElement
	}
	return f, nil
}

func (p *Page) Eval(_ context.Context, js string, args ...interface{}) (gson.JSON, error) {
	p.mu.Lock()
	fn := p.EvalFn
	p.mu.Unlock()
	if fn != nil {
		return fn(js, args...)
	}
	return gson.New(nil), nil
}

func (p *Page) ReadClipboard(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Clipboard, p.ClipboardErr
}

func (p *Page) MoveMouse(_ context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Moves = append(p.Moves, Point{X: x, Y: y})
	return nil
}

func (p *Page) ClickAt(_ context.Context, x, y float64) error {
	p.mu.Lock()
	fn := p.ClickAtFn
	p.ClickPoints = append(p.ClickPoints, Point{X: x, Y: y})
	p.mu.Unlock()
	if fn != nil {
		return fn(x, y)
	}
	return nil
}

func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots++
	return []byte("png"), nil
}
