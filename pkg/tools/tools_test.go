package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"transient", Transient("language", errors.New("timeout")), KindTransient},
		{"invalid input", InvalidInput("docintel", errors.New("unreadable")), KindInvalidInput},
		{"unavailable", Unavailable("policysearch", errors.New("outage")), KindUnavailable},
		{"wrapped", fmt.Errorf("call failed: %w", Unavailable("llm", errors.New("503"))), KindUnavailable},
		{"plain error defaults to transient", errors.New("connection reset"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{400, KindInvalidInput},
		{404, KindInvalidInput},
		{429, KindTransient},
		{500, KindTransient},
		{503, KindUnavailable},
	}

	for _, tt := range tests {
		got := ClassifyStatus("docintel", tt.status, "").Kind
		if got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWithRetrySucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), "language", time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Transient("language", errors.New("timeout"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 2 {
		t.Errorf("result = %q, calls = %d", result, calls)
	}
}

func TestWithRetryDegradesToUnavailable(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), "policysearch", time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "", Transient("policysearch", errors.New("timeout"))
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (retry exactly once)", calls)
	}
	if KindOf(err) != KindUnavailable {
		t.Errorf("kind = %v, want unavailable", KindOf(err))
	}
}

func TestWithRetryDoesNotRetryInvalidInput(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), "docintel", time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "", InvalidInput("docintel", errors.New("bad file"))
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v, want invalid_input", KindOf(err))
	}
}
