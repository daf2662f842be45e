package pipeline

import (
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := &Pipeline{opts: Options{RetryBase: 100 * time.Millisecond, RetryMax: 350 * time.Millisecond}}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
	if got := (&Pipeline{}).backoff(3); got != 0 {
		t.Fatalf("zero base should disable backoff, got %v", got)
	}
}
