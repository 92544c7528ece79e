// internal/driver/fakedriver/element.go
package fakedriver

import (
	"context"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// Element is a fake DOM node. Zero-value fields mean hidden and disabled; use
// NewElement for the common visible, enabled case.
type Element struct {
	Label     string
	Displayed bool
	Enabled   bool
	// HiddenFor keeps IsDisplayed reporting false for this many calls.
	HiddenFor int
	// OnClick runs after a successful click, outside the driver lock, so it may call
	// back into the driver (open a window, present a dialog).
	OnClick func(d *Driver)

	d      *Driver
	value  string
	clicks int
	stale  bool
}

// NewElement returns a visible, enabled element whose text is label.
func NewElement(label string) *Element {
	return &Element{Label: label, Displayed: true, Enabled: true}
}

// Clicks reports how many clicks landed on the element.
func (e *Element) Clicks() int {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.clicks
}

// Value returns the text typed into the element.
func (e *Element) Value() string {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.value
}

// SetDisplayed flips visibility after registration.
func (e *Element) SetDisplayed(v bool) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.Displayed = v
}

func (e *Element) enter(method string) error {
	if err := e.d.enter(method); err != nil {
		return err
	}
	if e.stale {
		return driver.ErrStaleElement
	}
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	e.d.mu.Lock()
	if err := e.enter("Click"); err != nil {
		e.d.mu.Unlock()
		return err
	}
	e.clicks++
	hook := e.OnClick
	e.d.mu.Unlock()

	if hook != nil {
		hook(e.d)
	}
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.enter("Clear"); err != nil {
		return err
	}
	e.value = ""
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.enter("SendKeys"); err != nil {
		return err
	}
	e.value += text
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.enter("Text"); err != nil {
		return "", err
	}
	return e.Label, nil
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.enter("IsDisplayed"); err != nil {
		return false, err
	}
	if e.HiddenFor > 0 {
		e.HiddenFor--
		return false, nil
	}
	return e.Displayed, nil
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.enter("IsEnabled"); err != nil {
		return false, err
	}
	return e.Enabled, nil
}

var _ driver.Element = (*Element)(nil)
