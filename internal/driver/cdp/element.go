// internal/driver/cdp/element.go
package cdp

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// Element is a DOM node on the tab it was found on.
type Element struct {
	d    *Driver
	tab  *tab
	node *cdp.Node
}

var _ driver.Element = (*Element)(nil)

// nodeFunc runs body with this bound to the node and reports detached nodes instead
// of answering for them.
const nodeFunc = `function() {
	if (!this.isConnected) {
		return {stale: true};
	}
	return {stale: false, value: (function() { %s }).call(this)};
}`

const (
	displayedBody = `
		const style = window.getComputedStyle(this);
		if (style.display === 'none' || style.visibility === 'hidden' || style.visibility === 'collapse') {
			return false;
		}
		if (Number(style.opacity) === 0) {
			return false;
		}
		const rect = this.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;`

	enabledBody = `
		if (this.disabled === true) {
			return false;
		}
		return this.closest('fieldset[disabled]') === null;`

	textBody = `
		return typeof this.innerText === 'string' ? this.innerText : (this.textContent || '');`

	clearBody = `
		if ('value' in this && this.tagName !== 'BUTTON') {
			this.focus();
			this.value = '';
			this.dispatchEvent(new Event('input', {bubbles: true}));
			this.dispatchEvent(new Event('change', {bubbles: true}));
		} else if (this.isContentEditable) {
			this.textContent = '';
		}
		return true;`
)

type nodeReply[T any] struct {
	Stale bool `json:"stale"`
	Value T    `json:"value"`
}

// callOnNode resolves the node to a remote object and calls the wrapped body on it.
func callOnNode[T any](ctx context.Context, e *Element, kind callKind, body string) (T, error) {
	var raw []byte
	fn := fmt.Sprintf(nodeFunc, body)
	err := e.d.runOn(ctx, e.tab, kind, e.d.cmdTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}
		if res != nil {
			raw = []byte(res.Value)
		}
		return nil
	}))
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeNodeReply[T](raw)
}

func decodeNodeReply[T any](raw []byte) (T, error) {
	var reply nodeReply[T]
	if len(raw) == 0 {
		return reply.Value, errors.New("node call returned no value")
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return reply.Value, fmt.Errorf("decode node reply: %w", err)
	}
	if reply.Stale {
		var zero T
		return zero, driver.ErrStaleElement
	}
	return reply.Value, nil
}

func (e *Element) Click(ctx context.Context) error {
	return e.d.runOn(ctx, e.tab, effectCall, e.d.cmdTimeout, chromedp.MouseClickNode(e.node))
}

func (e *Element) Clear(ctx context.Context) error {
	_, err := callOnNode[bool](ctx, e, effectCall, clearBody)
	return err
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.d.runOn(ctx, e.tab, effectCall, e.d.cmdTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.Focus().WithNodeID(e.node.NodeID).Do(ctx)
		}),
		chromedp.KeyEvent(text),
	)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return callOnNode[string](ctx, e, queryCall, textBody)
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	return callOnNode[bool](ctx, e, queryCall, displayedBody)
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	return callOnNode[bool](ctx, e, queryCall, enabledBody)
}

// MoveTo scrolls the element into view and moves the pointer to the center of its
// content box.
func (d *Driver) MoveTo(ctx context.Context, el driver.Element) error {
	e, ok := el.(*Element)
	if !ok {
		return fmt.Errorf("move to %T: %w", el, driver.ErrUnsupported)
	}
	return d.runOn(ctx, e.tab, effectCall, d.cmdTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return err
		}
		box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		x, y, err := quadCenter(box.Content)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// quadCenter averages the four corners of a quad.
func quadCenter(q dom.Quad) (float64, float64, error) {
	if len(q) != 8 {
		return 0, 0, fmt.Errorf("malformed quad with %d coordinates", len(q))
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, nil
}
