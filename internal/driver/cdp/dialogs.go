// internal/driver/cdp/dialogs.go
package cdp

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// dialogState tracks the native dialog of one tab. The protocol has no "is a dialog
// open" query, so the state is built from the opening and closed events.
type dialogState struct {
	mu     sync.Mutex
	open   *page.EventJavascriptDialogOpening
	opened chan struct{}
}

func newDialogState() *dialogState {
	return &dialogState{opened: make(chan struct{})}
}

func (s *dialogState) onOpening(ev *page.EventJavascriptDialogOpening) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		close(s.opened)
	}
	s.open = ev
}

func (s *dialogState) onClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		s.open = nil
		s.opened = make(chan struct{})
	}
}

// current returns the open dialog, if any, and a channel closed when the next
// dialog opens.
func (s *dialogState) current() (*page.EventJavascriptDialogOpening, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.opened
}

// DialogPresent reports whether the current tab shows a native dialog.
func (d *Driver) DialogPresent(ctx context.Context) (bool, error) {
	t, err := d.current()
	if err != nil {
		return false, err
	}
	open, _ := t.dialogs.current()
	return open != nil, nil
}

// DialogText returns the message of the open dialog.
func (d *Driver) DialogText(ctx context.Context) (string, error) {
	t, err := d.current()
	if err != nil {
		return "", err
	}
	open, _ := t.dialogs.current()
	if open == nil {
		return "", driver.ErrNoAlert
	}
	return open.Message, nil
}

func (d *Driver) DialogAccept(ctx context.Context) error  { return d.handleDialog(ctx, true) }
func (d *Driver) DialogDismiss(ctx context.Context) error { return d.handleDialog(ctx, false) }

// handleDialog answers the dialog directly. It bypasses run, which would refuse to
// talk to a tab that has a dialog open.
func (d *Driver) handleDialog(ctx context.Context, accept bool) error {
	t, err := d.current()
	if err != nil {
		return err
	}
	if open, _ := t.dialogs.current(); open == nil {
		return driver.ErrNoAlert
	}
	cctx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(cctx, page.HandleJavaScriptDialog(accept)); err != nil {
		return classify(err)
	}
	// The closed event can trail the command response.
	t.dialogs.onClosed()
	return nil
}
