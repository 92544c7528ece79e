// internal/browser/session/alerts_test.go
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/driver/fakedriver"
)

func TestRecoverAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("NoDialogIsANoOp", func(t *testing.T) {
		drv := fakedriver.New()
		rec := newRecorder()
		s := newTestSession(t, drv, WithRecorder(rec))

		assert.False(t, s.RecoverAlert(ctx))
		assert.False(t, s.RecoverAlert(ctx), "recovery is idempotent")
		assert.Empty(t, rec.recoveries)
		assert.Equal(t, 2, drv.Calls("DialogPresent"))
		assert.Zero(t, drv.Calls("DialogAccept"))
		assert.Zero(t, drv.Calls("DialogDismiss"))
		assert.Zero(t, drv.Calls("DialogText"))
	})

	t.Run("AcceptsOpenDialog", func(t *testing.T) {
		drv := fakedriver.New()
		drv.OpenDialog("Item added to cart")
		rec := newRecorder()
		s := newTestSession(t, drv, WithRecorder(rec))

		assert.True(t, s.RecoverAlert(ctx))
		assert.Equal(t, 1, drv.Accepted())
		assert.Zero(t, drv.Dismissed())
		assert.Equal(t, 1, rec.recoveries[recoveryHandled])

		present, err := drv.DialogPresent(ctx)
		require.NoError(t, err)
		assert.False(t, present)
	})

	t.Run("FallsBackToDismiss", func(t *testing.T) {
		drv := fakedriver.New()
		drv.OpenDialog("Leave page?")
		drv.FailDialog(errors.New("dialog has no accept button"), nil)
		s := newTestSession(t, drv)

		assert.True(t, s.RecoverAlert(ctx))
		assert.Zero(t, drv.Accepted())
		assert.Equal(t, 1, drv.Dismissed())
	})

	t.Run("SwallowsDoubleFailure", func(t *testing.T) {
		drv := fakedriver.New()
		drv.OpenDialog("stuck")
		drv.FailDialog(errors.New("accept refused"), errors.New("dismiss refused"))
		rec := newRecorder()
		s := newTestSession(t, drv, WithRecorder(rec))

		assert.False(t, s.RecoverAlert(ctx), "a dialog that could not be handled is reported as not handled")
		assert.Equal(t, 1, rec.recoveries[recoveryFailed])
	})

	t.Run("WaitsForSlowClose", func(t *testing.T) {
		drv := fakedriver.New()
		drv.OpenDialog("closing slowly")
		drv.DialogCloseDelay(3)
		s := newTestSession(t, drv)

		assert.True(t, s.RecoverAlert(ctx))
		// One presence query before handling, three "still there" polls, one final poll.
		assert.Equal(t, 5, drv.Calls("DialogPresent"))
	})
}

func TestWaitForAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("NoDialogIsFalseNotError", func(t *testing.T) {
		drv := fakedriver.New()
		s := newTestSession(t, drv)

		start := time.Now()
		handled := s.WaitForAlert(ctx, WithTimeout(150*time.Millisecond))
		elapsed := time.Since(start)

		assert.False(t, handled)
		assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
		assert.Less(t, elapsed, 150*time.Millisecond+testInterval+slack)
	})

	t.Run("AcceptsDialogThatAppearsLater", func(t *testing.T) {
		drv := fakedriver.New()
		s := newTestSession(t, drv)

		timer := time.AfterFunc(60*time.Millisecond, func() { drv.OpenDialog("Confirm purchase?") })
		defer timer.Stop()

		assert.True(t, s.WaitForAlert(ctx, WithTimeout(time.Second)))
		assert.Equal(t, 1, drv.Accepted())
	})
}

func TestWaitUntilNoAlert(t *testing.T) {
	drv := fakedriver.New()
	drv.OpenDialog("never handled")
	s := newTestSession(t, drv)

	assert.False(t, s.WaitUntilNoAlert(context.Background(), 80*time.Millisecond))
	require.NoError(t, drv.DialogAccept(context.Background()))
	assert.True(t, s.WaitUntilNoAlert(context.Background(), 80*time.Millisecond))
}

func TestAlertText(t *testing.T) {
	drv := fakedriver.New()
	s := newTestSession(t, drv)

	_, err := s.AlertText(context.Background())
	assert.ErrorIs(t, err, driver.ErrNoAlert)

	drv.OpenDialog("Are you sure?")
	text, err := s.AlertText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Are you sure?", text)
}
