// internal/driver/fakedriver/fakedriver.go
// Package fakedriver is an in-memory driver.Driver for exercising the synchronization
// layer without a browser. Elements can be scheduled to appear after a number of
// lookups, driver calls can be pre-empted by dialogs a set number of times, and new
// windows can be opened from click hooks.
package fakedriver

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// ScriptCall records one ExecuteScript invocation.
type ScriptCall struct {
	Script string
	Args   []any
}

type entry struct {
	elements []*Element
	misses   int
}

// Driver is safe for concurrent use, although the session layer never calls it from
// more than one goroutine.
type Driver struct {
	mu sync.Mutex

	entries map[driver.Locator]*entry
	lookups map[driver.Locator]int

	interrupts map[string]int
	calls      map[string]int

	dialogOpen       bool
	dialogText       string
	dialogCloseDelay int
	closePending     int
	acceptErr        error
	dismissErr       error
	accepted         int
	dismissed        int

	handles       []string
	pending       []pendingWindow
	current       string
	switches      []string
	windowHandles int

	history []string
	pos     int
	titles  map[string]string

	scripts      []ScriptCall
	scriptResult any
	hovered      *Element
	closed       bool
}

type pendingWindow struct {
	handle string
	after  int
}

// New returns a driver with a single window and a blank page.
func New() *Driver {
	return &Driver{
		entries:    make(map[driver.Locator]*entry),
		lookups:    make(map[driver.Locator]int),
		interrupts: make(map[string]int),
		calls:      make(map[string]int),
		handles:    []string{"main"},
		current:    "main",
		history:    []string{"about:blank"},
		titles:     make(map[string]string),
	}
}

// Add registers elements under loc. They are visible to the first lookup.
func (d *Driver) Add(loc driver.Locator, els ...*Element) {
	d.AddAfter(loc, 0, els...)
}

// AddAfter registers elements that stay absent for the first misses lookups of loc.
func (d *Driver) AddAfter(loc driver.Locator, misses int, els ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		el.d = d
	}
	d.entries[loc] = &entry{elements: els, misses: misses}
	d.lookups[loc] = 0
}

// Remove detaches every element registered under loc; existing handles go stale.
func (d *Driver) Remove(loc driver.Locator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[loc]; ok {
		for _, el := range e.elements {
			el.stale = true
		}
	}
	delete(d.entries, loc)
}

// Interrupt makes the next n calls of the named driver or element method fail with
// driver.ErrUnexpectedAlert, opening a dialog each time. Names are the Go method
// names: "FindOne", "FindAll", "CurrentURL", "Click", "SendKeys" and so on.
func (d *Driver) Interrupt(method string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interrupts[method] = n
}

// OpenDialog presents a native dialog with the given text.
func (d *Driver) OpenDialog(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openDialogLocked(text)
}

// DialogCloseDelay makes a handled dialog keep reporting present for n more polls.
func (d *Driver) DialogCloseDelay(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialogCloseDelay = n
}

// FailDialog makes accept and dismiss fail with the given errors. A nil error restores
// normal behavior for that action.
func (d *Driver) FailDialog(acceptErr, dismissErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acceptErr = acceptErr
	d.dismissErr = dismissErr
}

// OpenWindow adds a window handle immediately.
func (d *Driver) OpenWindow(handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles = append(d.handles, handle)
}

// OpenWindowAfter adds a window handle once WindowHandles has been called n more times.
func (d *Driver) OpenWindowAfter(handle string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, pendingWindow{handle: handle, after: d.windowHandles + n})
}

// SetHandles replaces the window list. Focus is left untouched.
func (d *Driver) SetHandles(handles ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles = append([]string(nil), handles...)
}

// SetTitle assigns the title reported while url is loaded.
func (d *Driver) SetTitle(url, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.titles[url] = title
}

// Calls reports how many times the named method ran, including interrupted calls.
func (d *Driver) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// Lookups reports how many FindOne/FindAll calls targeted loc.
func (d *Driver) Lookups(loc driver.Locator) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[loc]
}

// Accepted and Dismissed report how many dialogs were handled each way.
func (d *Driver) Accepted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

func (d *Driver) Dismissed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dismissed
}

// Switches lists every handle SwitchToWindow successfully focused, in order.
func (d *Driver) Switches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.switches...)
}

// Scripts returns the recorded ExecuteScript calls.
func (d *Driver) Scripts() []ScriptCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ScriptCall(nil), d.scripts...)
}

// SetScriptResult sets the value every ExecuteScript call returns.
func (d *Driver) SetScriptResult(v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scriptResult = v
}

// Hovered returns the element the pointer was last moved to.
func (d *Driver) Hovered() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hovered
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) openDialogLocked(text string) {
	d.dialogOpen = true
	d.dialogText = text
	d.closePending = 0
}

// enter counts the call and applies dialog pre-emption. Callers hold d.mu.
func (d *Driver) enter(method string) error {
	d.calls[method]++
	if n := d.interrupts[method]; n > 0 {
		d.interrupts[method] = n - 1
		d.openDialogLocked(fmt.Sprintf("interrupting %s", method))
		return driver.ErrUnexpectedAlert
	}
	if d.dialogOpen {
		return driver.ErrUnexpectedAlert
	}
	return nil
}

func (d *Driver) match(loc driver.Locator) []*Element {
	d.lookups[loc]++
	e, ok := d.entries[loc]
	if !ok || d.lookups[loc] <= e.misses {
		return nil
	}
	return e.elements
}

func (d *Driver) FindOne(ctx context.Context, loc driver.Locator) (driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("FindOne"); err != nil {
		return nil, err
	}
	els := d.match(loc)
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, driver.ErrNoSuchElement)
	}
	return els[0], nil
}

func (d *Driver) FindAll(ctx context.Context, loc driver.Locator) ([]driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("FindAll"); err != nil {
		return nil, err
	}
	els := d.match(loc)
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("CurrentURL"); err != nil {
		return "", err
	}
	return d.history[d.pos], nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Title"); err != nil {
		return "", err
	}
	return d.titles[d.history[d.pos]], nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Navigate"); err != nil {
		return err
	}
	d.history = append(d.history[:d.pos+1], url)
	d.pos = len(d.history) - 1
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enter("Refresh")
}

func (d *Driver) Back(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Back"); err != nil {
		return err
	}
	if d.pos > 0 {
		d.pos--
	}
	return nil
}

func (d *Driver) Forward(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Forward"); err != nil {
		return err
	}
	if d.pos < len(d.history)-1 {
		d.pos++
	}
	return nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("WindowHandles"); err != nil {
		return nil, err
	}
	d.windowHandles++
	kept := d.pending[:0]
	for _, p := range d.pending {
		if d.windowHandles > p.after {
			d.handles = append(d.handles, p.handle)
			continue
		}
		kept = append(kept, p)
	}
	d.pending = kept
	return append([]string(nil), d.handles...), nil
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("CurrentWindow"); err != nil {
		return "", err
	}
	return d.current, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("SwitchToWindow"); err != nil {
		return err
	}
	for _, h := range d.handles {
		if h == handle {
			d.current = handle
			d.switches = append(d.switches, handle)
			return nil
		}
	}
	return fmt.Errorf("%q: %w", handle, driver.ErrNoSuchWindow)
}

// Dialog methods never count as pre-empted.

func (d *Driver) DialogPresent(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["DialogPresent"]++
	if !d.dialogOpen && d.closePending > 0 {
		d.closePending--
		return true, nil
	}
	return d.dialogOpen, nil
}

func (d *Driver) DialogAccept(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["DialogAccept"]++
	if !d.dialogOpen {
		return driver.ErrNoAlert
	}
	if d.acceptErr != nil {
		return d.acceptErr
	}
	d.accepted++
	d.closeDialogLocked()
	return nil
}

func (d *Driver) DialogDismiss(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["DialogDismiss"]++
	if !d.dialogOpen {
		return driver.ErrNoAlert
	}
	if d.dismissErr != nil {
		return d.dismissErr
	}
	d.dismissed++
	d.closeDialogLocked()
	return nil
}

func (d *Driver) closeDialogLocked() {
	d.dialogOpen = false
	d.dialogText = ""
	d.closePending = d.dialogCloseDelay
}

func (d *Driver) DialogText(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["DialogText"]++
	if !d.dialogOpen {
		return "", driver.ErrNoAlert
	}
	return d.dialogText, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("ExecuteScript"); err != nil {
		return nil, err
	}
	d.scripts = append(d.scripts, ScriptCall{Script: script, Args: args})
	return d.scriptResult, nil
}

func (d *Driver) MoveTo(ctx context.Context, el driver.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("MoveTo"); err != nil {
		return err
	}
	fe, ok := el.(*Element)
	if !ok {
		return fmt.Errorf("fakedriver: foreign element %T", el)
	}
	if fe.stale {
		return driver.ErrStaleElement
	}
	d.hovered = fe
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

var _ driver.Driver = (*Driver)(nil)
