package utils

import (
	"testing"
	"time"
)

func TestGoroutineLeakDetector(t *testing.T) {
	t.Run("CleanShutdownPasses", func(t *testing.T) {
		detector := NewGoroutineLeakDetector(t)
		detector.Start()

		done := make(chan struct{})
		go func() { close(done) }()
		<-done

		detector.Check()
	})

	t.Run("LeakFailsTheTest", func(t *testing.T) {
		// a throwaway testing.T captures the failure without failing us
		var inner testing.T
		detector := NewGoroutineLeakDetector(&inner).SettleTimeout(200 * time.Millisecond)
		detector.Start()

		block := make(chan struct{})
		t.Cleanup(func() { close(block) })
		go func() { <-block }()

		detector.Check()

		if !inner.Failed() {
			t.Error("expected the detector to report the blocked goroutine")
		}
	})
}
