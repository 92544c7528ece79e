// internal/browser/session/guard_test.go
package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/driver/fakedriver"
	"github.com/xkilldash9x/pagesync/internal/mocks"
)

func TestGuard(t *testing.T) {
	loc := driver.ID("checkout")
	ctx := context.Background()

	t.Run("SucceedsWithoutRecovery", func(t *testing.T) {
		drv := fakedriver.New()
		drv.Add(loc, fakedriver.NewElement("Checkout"))
		s := newTestSession(t, drv)

		calls := 0
		el, err := Guard(ctx, s, "find", func(ctx context.Context) (driver.Element, error) {
			calls++
			return drv.FindOne(ctx, loc)
		})
		require.NoError(t, err)
		assert.NotNil(t, el)
		assert.Equal(t, 1, calls)
		assert.Zero(t, drv.Calls("DialogPresent"), "no recovery without an interruption")
	})

	t.Run("RecoversFromSingleInterruption", func(t *testing.T) {
		drv := fakedriver.New()
		drv.Add(loc, fakedriver.NewElement("Checkout"))
		drv.Interrupt("FindOne", 1)
		rec := newRecorder()
		s := newTestSession(t, drv, WithRecorder(rec))

		calls := 0
		el, err := Guard(ctx, s, "find", func(ctx context.Context) (driver.Element, error) {
			calls++
			return drv.FindOne(ctx, loc)
		})
		require.NoError(t, err)
		assert.NotNil(t, el)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, drv.Accepted())
		assert.Equal(t, 1, rec.interruptions["find"])
		assert.Equal(t, 1, rec.recoveries[recoveryHandled])
	})

	t.Run("SecondInterruptionIsFinal", func(t *testing.T) {
		drv := fakedriver.New()
		drv.Add(loc, fakedriver.NewElement("Checkout"))
		drv.Interrupt("FindOne", 5)
		s := newTestSession(t, drv)

		calls := 0
		_, err := Guard(ctx, s, "find", func(ctx context.Context) (driver.Element, error) {
			calls++
			return drv.FindOne(ctx, loc)
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, driver.ErrUnexpectedAlert)
		assert.Contains(t, err.Error(), "interrupted again after dialog recovery")
		assert.Equal(t, 2, calls, "the guard never makes a third attempt")
		assert.Equal(t, OutcomeFailed, OutcomeOf(err))
	})

	t.Run("OtherErrorsPropagateUnchanged", func(t *testing.T) {
		drv := fakedriver.New()
		s := newTestSession(t, drv)
		boom := errors.New("session deleted")

		calls := 0
		_, err := Guard(ctx, s, "find", func(ctx context.Context) (int, error) {
			calls++
			return 0, boom
		})
		assert.Same(t, boom, err)
		assert.Equal(t, 1, calls)
		assert.Zero(t, drv.Calls("DialogPresent"))
	})
}

// The guard drives recovery in order: presence, text, accept, then polls until closed.
func TestGuard_RecoverySequence(t *testing.T) {
	drv := new(mocks.MockDriver)
	el := new(mocks.MockElement)
	loc := driver.CSS("#add-to-cart")

	drv.On("FindOne", mock.Anything, loc).Return(nil, driver.ErrUnexpectedAlert).Once()
	drv.On("DialogPresent", mock.Anything).Return(true, nil).Once()
	drv.On("DialogText", mock.Anything).Return("Added to cart", nil).Once()
	drv.On("DialogAccept", mock.Anything).Return(nil).Once()
	drv.On("DialogPresent", mock.Anything).Return(false, nil).Once()
	drv.On("FindOne", mock.Anything, loc).Return(el, nil).Once()

	s := newTestSession(t, drv)
	got, err := Guard(context.Background(), s, "find", func(ctx context.Context) (driver.Element, error) {
		return drv.FindOne(ctx, loc)
	})
	require.NoError(t, err)
	assert.Same(t, el, got)
	drv.AssertExpectations(t)
	drv.AssertNotCalled(t, "DialogDismiss", mock.Anything)
}

// A page that interrupts n times lets the operation succeed iff n <= 1.
func TestGuard_InterruptionBoundProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "interruptions")
		loc := driver.ID("item")

		drv := fakedriver.New()
		drv.Add(loc, fakedriver.NewElement("item"))
		drv.Interrupt("FindOne", n)
		s := New(drv, WithConfig(testConfig()))

		_, err := s.Locate(context.Background(), loc)
		if n <= 1 && err != nil {
			rt.Fatalf("%d interruptions: expected success, got %v", n, err)
		}
		if n > 1 && !errors.Is(err, driver.ErrUnexpectedAlert) {
			rt.Fatalf("%d interruptions: expected an interruption fault, got %v", n, err)
		}
		wantCalls := n + 1
		if wantCalls > 2 {
			wantCalls = 2
		}
		if got := drv.Calls("FindOne"); got != wantCalls {
			rt.Fatalf("%d interruptions: FindOne called %d times, want %d", n, got, wantCalls)
		}
	})
}

func TestGuardState_String(t *testing.T) {
	assert.Equal(t, "idle", guardIdle.String())
	assert.Equal(t, "recovering", guardRecovering.String())
	assert.Equal(t, "guardState(42)", guardState(42).String())
}
