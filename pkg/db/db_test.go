package db

import (
	"context"
	"testing"
	"time"
)

func TestGormLoggerTraceInvokesQueryHook(t *testing.T) {
	var count int
	var recorded time.Duration
	hook := func(elapsed time.Duration) {
		count++
		recorded = elapsed
	}

	// SQL 日志关闭时埋点仍然生效
	l := NewGormLogger(false, time.Second, hook)
	l.Trace(context.Background(), time.Now().Add(-10*time.Millisecond), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	if count != 1 {
		t.Fatalf("hook invocations = %d, want 1", count)
	}
	if recorded < 10*time.Millisecond {
		t.Errorf("recorded elapsed = %v, want >= 10ms", recorded)
	}

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 2", 1
	}, nil)
	if count != 2 {
		t.Fatalf("hook invocations = %d, want 2", count)
	}
}

func TestGormLoggerTraceNilHook(t *testing.T) {
	l := NewGormLogger(false, time.Second, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
}
