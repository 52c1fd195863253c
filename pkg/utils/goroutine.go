package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector fails a test when goroutines outlive the code
// under test. Snapshot the baseline with Start, run the body, then call
// Check after every handle is closed.
type GoroutineLeakDetector struct {
	t             *testing.T
	baseline      int
	allowedGrowth int
	settleTimeout time.Duration
}

// NewGoroutineLeakDetector creates a detector bound to t.
func NewGoroutineLeakDetector(t *testing.T) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		t:             t,
		settleTimeout: 2 * time.Second,
	}
}

// AllowGrowth permits n goroutines to remain beyond the baseline.
func (d *GoroutineLeakDetector) AllowGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// SettleTimeout bounds how long Check waits for goroutines to unwind.
func (d *GoroutineLeakDetector) SettleTimeout(timeout time.Duration) *GoroutineLeakDetector {
	d.settleTimeout = timeout
	return d
}

// Start records the baseline goroutine count. Stragglers from earlier
// tests get a moment to finish before the snapshot.
func (d *GoroutineLeakDetector) Start() {
	runtime.Gosched()
	time.Sleep(50 * time.Millisecond)
	d.baseline = runtime.NumGoroutine()
}

// Check polls until the goroutine count drops back to the baseline or the
// settle timeout passes, then fails the test with full stacks if
// goroutines remain. Teardown is asynchronous, so a single sample right
// after Close would flag goroutines that are merely still unwinding.
func (d *GoroutineLeakDetector) Check() {
	deadline := time.Now().Add(d.settleTimeout)
	var current int
	for {
		current = runtime.NumGoroutine()
		if current <= d.baseline+d.allowedGrowth {
			return
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	d.t.Errorf("goroutine leak: %d at baseline, %d after settling\n%s",
		d.baseline, current, buf[:n])
}
