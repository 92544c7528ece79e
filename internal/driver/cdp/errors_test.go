// internal/driver/cdp/errors_test.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"stale node id", errors.New("Could not find node with given id (-32000)"), driver.ErrStaleElement},
		{"detached node", errors.New("Node is detached from document (-32000)"), driver.ErrStaleElement},
		{"no dialog", errors.New("No dialog is showing (-32602)"), driver.ErrNoAlert},
		{"no target", errors.New("No target with given id found (-32602)"), driver.ErrNoSuchWindow},
		{"canceled passes through", fmt.Errorf("run: %w", context.Canceled), context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	assert.NoError(t, classify(nil))

	err := errors.New("Could not compute box model. (-32000)")
	got := classify(err)
	assert.Same(t, err, got)
	assert.NotErrorIs(t, got, driver.ErrStaleElement)
}
