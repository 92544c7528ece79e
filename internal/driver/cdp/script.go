// internal/driver/cdp/script.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExecuteScript runs script as a function body with this bound to window. Element
// arguments are passed as remote objects; everything else is inlined as JSON.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	decl, nodes, err := wrapScript(script, args)
	if err != nil {
		return nil, err
	}

	var out any
	err = d.run(ctx, effectCall, chromedp.ActionFunc(func(ctx context.Context) error {
		callArgs := make([]*runtime.CallArgument, 0, len(nodes))
		for _, el := range nodes {
			obj, err := dom.ResolveNode().WithBackendNodeID(el.node.BackendNodeID).Do(ctx)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, &runtime.CallArgument{ObjectID: obj.ObjectID})
		}

		win, exc, err := runtime.Evaluate("window").Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}

		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(win.ObjectID).
			WithArguments(callArgs).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(exc)
		}
		if res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), &out)
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// wrapScript builds the function declaration handed to Runtime.callFunctionOn and
// returns the element arguments in the order the declaration expects them.
func wrapScript(script string, args []any) (string, []*Element, error) {
	var nodes []*Element
	literals := make([]string, 0, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *Element:
			literals = append(literals, fmt.Sprintf("__nodes[%d]", len(nodes)))
			nodes = append(nodes, v)
		case driver.Element:
			return "", nil, fmt.Errorf("argument %d is a %T: %w", i, a, driver.ErrUnsupported)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("argument %d: %w", i, err)
			}
			literals = append(literals, string(b))
		}
	}

	var b strings.Builder
	b.WriteString("function() {\n")
	b.WriteString("\tconst __nodes = arguments;\n")
	b.WriteString("\tconst __args = [" + strings.Join(literals, ", ") + "];\n")
	b.WriteString("\treturn (function() {\n")
	b.WriteString(script)
	b.WriteString("\n\t}).apply(window, __args);\n}")
	return b.String(), nodes, nil
}

func scriptError(exc *runtime.ExceptionDetails) error {
	if exc.Exception != nil && exc.Exception.Description != "" {
		return errors.New("script error: " + exc.Exception.Description)
	}
	return errors.New("script error: " + exc.Text)
}
