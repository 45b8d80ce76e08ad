package client

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	t.Run("default sequence caps at ten seconds", func(t *testing.T) {
		want := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			10 * time.Second,
			10 * time.Second,
			10 * time.Second, // past the end the last delay repeats
			10 * time.Second,
		}
		for attempt, w := range want {
			if got := backoffDelay(attempt, defaultBackoff); got != w {
				t.Errorf("attempt %d: delay = %v, want %v", attempt, got, w)
			}
		}
	})

	t.Run("negative attempt uses first delay", func(t *testing.T) {
		if got := backoffDelay(-1, defaultBackoff); got != 1*time.Second {
			t.Errorf("delay = %v, want 1s", got)
		}
	})

	t.Run("custom sequence", func(t *testing.T) {
		seq := []time.Duration{5 * time.Millisecond, 7 * time.Millisecond}
		if got := backoffDelay(0, seq); got != 5*time.Millisecond {
			t.Errorf("attempt 0: delay = %v", got)
		}
		if got := backoffDelay(5, seq); got != 7*time.Millisecond {
			t.Errorf("attempt 5: delay = %v", got)
		}
	})
}
