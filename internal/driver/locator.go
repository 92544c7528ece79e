// internal/driver/locator.go
package driver

import (
	"fmt"
	"strings"
)

// By names a lookup strategy.
type By string

// Supported lookup strategies. The string values follow the WebDriver names so locator
// tables written for other tools read the same way.
const (
	ByID        By = "id"
	ByXPath     By = "xpath"
	ByCSS       By = "css selector"
	ByClassName By = "class name"
	ByName      By = "name"
	ByTagName   By = "tag name"
	ByLinkText  By = "link text"
)

var knownStrategies = map[By]struct{}{
	ByID: {}, ByXPath: {}, ByCSS: {}, ByClassName: {}, ByName: {}, ByTagName: {}, ByLinkText: {},
}

// short prefixes accepted by ParseLocator in addition to the full strategy names.
var strategyAliases = map[string]By{
	"id":        ByID,
	"xpath":     ByXPath,
	"css":       ByCSS,
	"class":     ByClassName,
	"name":      ByName,
	"tag":       ByTagName,
	"link":      ByLinkText,
	"link text": ByLinkText,
}

// Locator describes how to find an element. It is a value type; copies are cheap and
// a locator is never modified after construction.
type Locator struct {
	By    By
	Value string
}

func ID(v string) Locator        { return Locator{By: ByID, Value: v} }
func XPath(v string) Locator     { return Locator{By: ByXPath, Value: v} }
func CSS(v string) Locator       { return Locator{By: ByCSS, Value: v} }
func ClassName(v string) Locator { return Locator{By: ByClassName, Value: v} }
func Name(v string) Locator      { return Locator{By: ByName, Value: v} }
func TagName(v string) Locator   { return Locator{By: ByTagName, Value: v} }
func LinkText(v string) Locator  { return Locator{By: ByLinkText, Value: v} }

// String renders the locator in the form accepted by ParseLocator.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Validate reports whether the locator has a known strategy and a non-empty value.
func (l Locator) Validate() error {
	if _, ok := knownStrategies[l.By]; !ok {
		return fmt.Errorf("unknown locator strategy %q", l.By)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("locator %q has an empty value", l.By)
	}
	return nil
}

// ParseLocator reads "<strategy>=<value>". The strategy may be a full WebDriver name
// ("css selector") or a short alias ("css"). Input without a recognised strategy prefix
// is treated as a CSS selector, so "div.card" and "css=div.card" are equivalent.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}
	if i := strings.Index(s, "="); i > 0 {
		prefix := strings.ToLower(strings.TrimSpace(s[:i]))
		by, ok := strategyAliases[prefix]
		if !ok {
			if _, known := knownStrategies[By(prefix)]; known {
				by, ok = By(prefix), true
			}
		}
		if ok {
			loc := Locator{By: by, Value: strings.TrimSpace(s[i+1:])}
			if err := loc.Validate(); err != nil {
				return Locator{}, err
			}
			return loc, nil
		}
	}
	// XPath expressions are recognisable on their own.
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return XPath(s), nil
	}
	return CSS(s), nil
}
