package jobqueue

import "testing"

func TestBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	cases := []struct {
		attempt int
		min, max int64
	}{
		{1, int64(1e9), int64(2e9) - 1},
		{2, int64(2e9), int64(3e9) - 1},
		{3, int64(4e9), int64(5e9) - 1},
		{10, int64(60e9), int64(61e9) - 1},
	}
	for _, c := range cases {
		d := int64(Backoff(c.attempt))
		if d < c.min || d > c.max {
			t.Fatalf("Backoff(%d) = %d, want in [%d, %d]", c.attempt, d, c.min, c.max)
		}
	}
}
