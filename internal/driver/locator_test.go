// internal/driver/locator_test.go
package driver

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Locator
	}{
		{"ShortCSS", "css=#cartur", CSS("#cartur")},
		{"FullStrategyName", "css selector=.card-title", CSS(".card-title")},
		{"ID", "id=login2", ID("login2")},
		{"ClassAlias", "class=navbar-brand", ClassName("navbar-brand")},
		{"XPathPrefixed", "xpath=//a[contains(text(), 'Home')]", XPath("//a[contains(text(), 'Home')]")},
		{"BareXPath", "//tr[@class='success']", XPath("//tr[@class='success']")},
		{"GroupedXPath", "(//a)[2]", XPath("(//a)[2]")},
		{"BareCSS", "div.card", CSS("div.card")},
		{"AttributeSelectorWithEquals", "a[href='prod.html?idp_=1']", CSS("a[href='prod.html?idp_=1']")},
		{"LinkText", "link text=Add to cart", LinkText("Add to cart")},
		{"CaseInsensitivePrefix", "XPATH=//div", XPath("//div")},
		{"TrimsWhitespace", "  id = name  ", ID("name")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocator_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "css=", "id=  "} {
		_, err := ParseLocator(in)
		assert.Error(t, err, "input %q should be rejected", in)
	}
}

func TestLocator_StringRoundTrip(t *testing.T) {
	for _, loc := range []Locator{ID("totalp"), XPath("//button[contains(text(),'Purchase')]"), ClassName("price-container"), TagName("tr"), Name("q")} {
		parsed, err := ParseLocator(loc.String())
		require.NoError(t, err)
		assert.Equal(t, loc, parsed)
	}
}

func TestLocator_Validate(t *testing.T) {
	assert.NoError(t, ID("x").Validate())
	assert.Error(t, Locator{By: "shadow", Value: "x"}.Validate())
	assert.Error(t, Locator{By: ByCSS}.Validate())
}

// FuzzParseLocator checks that any accepted input yields a locator that validates and
// survives a String/Parse cycle.
func FuzzParseLocator(f *testing.F) {
	f.Add([]byte("css=#id"))
	f.Add([]byte("//a[@href]"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		raw, err := consumer.GetString()
		if err != nil {
			return
		}
		loc, err := ParseLocator(raw)
		if err != nil {
			return
		}
		require.NoError(t, loc.Validate())
		again, err := ParseLocator(loc.String())
		require.NoError(t, err)
		assert.Equal(t, loc.By, again.By)
	})
}
