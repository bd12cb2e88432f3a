package order

import (
	"testing"
	"time"
)

func TestWindowLimiterCapAndReset(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(30, time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 30; i++ {
		if !l.Allow() {
			t.Fatalf("placement %d unexpectedly blocked", i+1)
		}
		l.RecordPlacement()
	}
	// 第 31 笔被拒
	if l.Allow() {
		t.Fatal("31st placement should be blocked")
	}

	// 窗口滚动后重新放行
	clock = clock.Add(61 * time.Second)
	if !l.Allow() {
		t.Fatal("expected allow after window reset")
	}
	if l.Count() != 0 {
		t.Fatalf("count should reset, got %d", l.Count())
	}
}

func TestWindowLimiterDefaults(t *testing.T) {
	l := NewWindowLimiter(0, 0)
	if l.cap != DefaultMaxOrdersPerMinute {
		t.Fatalf("default cap: got %d", l.cap)
	}
	if l.window != time.Minute {
		t.Fatalf("default window: got %v", l.window)
	}
}
