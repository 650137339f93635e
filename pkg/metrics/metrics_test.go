package metrics

import (
	"testing"
	"time"
)

func TestExposeHTTPReturnsImmediately(t *testing.T) {
	m := New("test")

	done := make(chan struct{})
	go func() {
		m.ExposeHTTP(0, "/metrics")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ExposeHTTP blocked the caller instead of listening in the background")
	}
}
