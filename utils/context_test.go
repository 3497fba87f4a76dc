package utils

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeoutDeadlines(t *testing.T) {
	cases := []struct {
		name string
		make func(context.Context) (context.Context, context.CancelFunc)
		want time.Duration
	}{
		{"default", WithTimeout, DefaultTimeout},
		{"long", WithLongTimeout, LongTimeout},
		{"short", WithShortTimeout, ShortTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := tc.make(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("context has no deadline")
			}
			remaining := time.Until(deadline)
			if remaining <= 0 || remaining > tc.want {
				t.Errorf("deadline %v from now, want at most %v", remaining, tc.want)
			}
		})
	}
}

func TestWithTimeoutRespectsParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := WithTimeout(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not cancelled with parent")
	}
	if ctx.Err() != context.Canceled {
		t.Errorf("ctx.Err() = %v, want context.Canceled", ctx.Err())
	}
}

func TestWithCustomTimeoutExpires(t *testing.T) {
	ctx, cancel := WithCustomTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context never expired")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want context.DeadlineExceeded", ctx.Err())
	}
}
