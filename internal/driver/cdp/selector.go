// internal/driver/cdp/selector.go
package cdp

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// selectorFor translates a locator into a chromedp selector and query option.
// Everything except XPath-based strategies is expressed as CSS.
func selectorFor(loc driver.Locator) (string, chromedp.QueryOption, error) {
	if err := loc.Validate(); err != nil {
		return "", nil, err
	}
	switch loc.By {
	case driver.ByCSS:
		return loc.Value, chromedp.ByQueryAll, nil
	case driver.ByID:
		return fmt.Sprintf("[id=%s]", cssString(loc.Value)), chromedp.ByQueryAll, nil
	case driver.ByName:
		return fmt.Sprintf("[name=%s]", cssString(loc.Value)), chromedp.ByQueryAll, nil
	case driver.ByClassName:
		return "." + cssIdent(loc.Value), chromedp.ByQueryAll, nil
	case driver.ByTagName:
		return loc.Value, chromedp.ByQueryAll, nil
	case driver.ByXPath:
		return loc.Value, chromedp.BySearch, nil
	case driver.ByLinkText:
		return fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(strings.TrimSpace(loc.Value))), chromedp.BySearch, nil
	}
	return "", nil, fmt.Errorf("locator strategy %q: %w", loc.By, driver.ErrUnsupported)
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// cssIdent escapes characters that would end a class selector early.
func cssIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '-' || r == '_' || r >= 0x80:
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// xpathLiteral quotes s for XPath 1.0, which has no escape syntax.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
