// internal/driver/cdp/errors.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// protocol error fragments mapped onto driver sentinels.
var (
	staleFragments = []string{
		"No node with given id",
		"Could not find node with given id",
		"Node is detached",
		"node is detached",
		"Cannot find context with specified id",
	}
	noDialogFragments = []string{"No dialog is showing"}
	noWindowFragments = []string{"No target with given id", "no such target"}
)

// classify maps a chromedp or protocol error onto the driver sentinels. Context
// errors pass through untouched so callers can tell cancellation apart.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	switch {
	case containsAny(msg, staleFragments):
		return fmt.Errorf("%w: %w", driver.ErrStaleElement, err)
	case containsAny(msg, noDialogFragments):
		return fmt.Errorf("%w: %w", driver.ErrNoAlert, err)
	case containsAny(msg, noWindowFragments):
		return fmt.Errorf("%w: %w", driver.ErrNoSuchWindow, err)
	}
	return err
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
