// internal/driver/cdp/selector_test.go
package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

func TestSelectorFor(t *testing.T) {
	tests := []struct {
		name   string
		loc    driver.Locator
		want   string
		search bool
	}{
		{"css passes through", driver.CSS("#cart > li"), "#cart > li", false},
		{"id is an attribute match", driver.ID("user name"), `[id="user name"]`, false},
		{"name is an attribute match", driver.Name(`q"x`), `[name="q\"x"]`, false},
		{"class name", driver.ClassName("btn-primary"), ".btn-primary", false},
		{"class name escaped", driver.ClassName("a.b"), `.a\.b`, false},
		{"tag name", driver.TagName("button"), "button", false},
		{"xpath", driver.XPath("//div[@id='x']"), "//div[@id='x']", true},
		{"link text", driver.LinkText(" Sign in "), `//a[normalize-space(.)="Sign in"]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, by, err := selectorFor(tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel)
			assert.NotNil(t, by)
		})
	}
}

func TestSelectorForRejectsInvalid(t *testing.T) {
	_, _, err := selectorFor(driver.Locator{By: driver.ByCSS})
	assert.Error(t, err)

	_, _, err = selectorFor(driver.Locator{By: "shadow", Value: "x"})
	assert.Error(t, err)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `concat("it's ", '"', "quoted", '"')`, xpathLiteral(`it's "quoted"`))
}

func TestCSSIdent(t *testing.T) {
	assert.Equal(t, "nav_item-2", cssIdent("nav_item-2"))
	assert.Equal(t, `\31 col`, cssIdent("1col"))
	assert.Equal(t, `a\:hover`, cssIdent("a:hover"))
}
