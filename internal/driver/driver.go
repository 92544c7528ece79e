// internal/driver/driver.go
// Package driver defines the capability surface the synchronization layer needs from a
// browser-automation backend. Implementations answer synchronously: a query reports what
// the page looks like right now and never waits on its own. Waiting, retrying and
// dialog recovery live one layer up, in the session package.
package driver

import (
	"context"
	"errors"
)

// Sentinel errors every Driver implementation maps its native failures onto.
var (
	// ErrNoSuchElement means a single-element query matched nothing at the time it ran.
	ErrNoSuchElement = errors.New("no such element")
	// ErrUnexpectedAlert means a native dialog pre-empted the call. The call had no effect
	// or an unknown effect; the caller is expected to clear the dialog before retrying.
	ErrUnexpectedAlert = errors.New("unexpected alert open")
	// ErrNoAlert is returned by dialog operations when no dialog is presented.
	ErrNoAlert = errors.New("no alert open")
	// ErrStaleElement means the element handle no longer refers to a node in the document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrNoSuchWindow is returned when switching to a handle the browser does not know.
	ErrNoSuchWindow = errors.New("no such window")
	// ErrUnsupported is returned for capabilities a backend cannot provide.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// Element is a handle to one node in the current document.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
}

// Driver is a single browser session. It is owned by one logical thread of control;
// implementations are not required to support concurrent callers.
type Driver interface {
	// FindOne returns the first element matching the locator or ErrNoSuchElement.
	FindOne(ctx context.Context, loc Locator) (Element, error)
	// FindAll returns every element matching the locator. No match is an empty slice.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error

	// WindowHandles reports the open windows/tabs. The last entry is the most recently
	// created one; the driver is the source of truth for that ordering.
	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchToWindow(ctx context.Context, handle string) error

	DialogPresent(ctx context.Context) (bool, error)
	DialogAccept(ctx context.Context) error
	DialogDismiss(ctx context.Context) error
	DialogText(ctx context.Context) (string, error)

	// ExecuteScript runs script as the body of a function in the page. Arguments are
	// visible to the script as arguments[i]; Element arguments arrive as DOM nodes.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	// MoveTo moves the pointer over the center of the element.
	MoveTo(ctx context.Context, el Element) error

	Close(ctx context.Context) error
}
