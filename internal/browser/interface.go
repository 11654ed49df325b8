// Package browser owns the single Chrome instance and exposes the minimal
// page-automation surface the orchestration layer drives. Everything above
// this package talks to Page/Element, never to rod directly, so the
// interaction logic stays testable against fakes.
package browser

import (
	"context"
	"errors"

	"github.com/ysmood/gson"
)

// ErrNoElement is returned by immediate lookups when the selector matches
// nothing. Callers poll; absence is not exceptional.
var ErrNoElement = errors.New("browser: no element matches selector")

// Element is a handle to one DOM node.
type Element interface {
	// Text returns the node's visible text content.
	Text() (string, error)
	// Input types text into the node as native keystrokes.
	Input(text string) error
	// SelectAllText selects the node's current content so the next Input
	// replaces it.
	SelectAllText() error
	// Click performs a left click on the node.
	Click() error
	// Hover moves the pointer onto the node.
	Hover() error
	// Visible reports whether the node is rendered and displayed.
	Visible() (bool, error)
	// Attribute returns the named attribute, or nil when absent.
	Attribute(name string) (*string, error)
	// Eval runs js with the node bound to `this`.
	Eval(js string, args ...interface{}) (gson.JSON, error)
}

// Page is the automation surface for the single shared page.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL returns the page's current address, or "" when unknown.
	URL() string
	// HTML returns the full serialized document.
	HTML() (string, error)
	// Element performs an immediate lookup; ErrNoElement when absent.
	Element(selector string) (Element, error)
	// Elements returns every match, possibly none.
	Elements(selector string) ([]Element, error)
	// Frame resolves an iframe selector to its content page.
	Frame(selector string) (Page, error)
	// Eval runs a JS function expression on the page, awaiting promises.
	Eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error)
	// ReadClipboard reads text through the page's clipboard capability.
	ReadClipboard(ctx context.Context) (string, error)
	// MoveMouse dispatches a raw pointer move in page coordinates.
	MoveMouse(ctx context.Context, x, y float64) error
	// ClickAt dispatches a raw pointer press/release at page coordinates,
	// bypassing element hit-testing.
	ClickAt(ctx context.Context, x, y float64) error
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}
