package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionInvalid means the browser, context or page behind a handle is gone.
	ErrSessionInvalid = errors.New("browser session invalid")
	// ErrTimeout means a navigation or wait ran past its deadline.
	ErrTimeout = errors.New("browser timeout")
	// ErrStale means an element handle no longer points at live document content.
	ErrStale = errors.New("stale element")
	// ErrNoSession means no browser could be started.
	ErrNoSession = errors.New("no browser session")
)

// Launcher starts a fresh browser with the given identity.
type Launcher interface {
	Launch(ctx context.Context, id Identity) (Page, error)
}

// Page is the single tab a Session drives. Implementations release every
// underlying resource (page, context, browser, driver process) on Close.
type Page interface {
	Goto(url string, timeout time.Duration) error
	// WaitReady blocks until document.readyState is "complete".
	WaitReady(timeout time.Duration) error
	Content() (string, error)
	URL() string
	// WaitForSelector waits until an element matching selector is attached.
	WaitForSelector(selector string, timeout time.Duration) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Evaluate(script string) error
	Screenshot(path string) error
	Close() error
}

// Element is a handle to a node on the live page.
type Element interface {
	Clear() error
	Fill(value string) error
	Press(key string) error
	Click(timeout time.Duration) error
	// ClickJS dispatches a click from page script, bypassing interception checks.
	ClickJS() error
	ScrollIntoView() error
	Attribute(name string) (string, error)
	Visible() (bool, error)
	Enabled() (bool, error)
	// Attached is the liveness probe: false or ErrStale when the node was detached.
	Attached() (bool, error)
}
