package resilience

import (
	"errors"
	"testing"
)

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		wantKind   ErrorKind
		wantRetry  bool
	}{
		{"memory limit message", errors.New("Run failed: memory limit exceeded"), 0, KindMemoryLimit, false},
		{"out of memory", errors.New("actor out of memory"), 0, KindMemoryLimit, false},
		{"billing status", errors.New("payment required"), 402, KindBillingLimit, false},
		{"usage hard limit", errors.New("Monthly usage hard limit reached"), 0, KindBillingLimit, false},
		{"rate limit status", errors.New("slow down"), 429, KindRateLimit, true},
		{"rate limit message", errors.New("rate limit exceeded for account"), 0, KindRateLimit, true},
		{"timeout message", errors.New("run timed out after 300s"), 0, KindTimeout, true},
		{"timeout status", errors.New("request timeout"), 408, KindTimeout, true},
		{"not found", errors.New("task not found"), 404, KindNotFound, false},
		{"unknown 500", errors.New("internal error"), 500, KindUnknown, true},
		{"unknown 503", errors.New("service unavailable right now"), 503, KindUnknown, true},
		{"unknown no status", errors.New("something odd"), 0, KindUnknown, false},
		{"unknown 400", errors.New("bad input"), 400, KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := Classify(tt.err, tt.statusCode)
			if te.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", te.Kind, tt.wantKind)
			}
			if te.Retryable != tt.wantRetry {
				t.Errorf("retryable = %v, want %v", te.Retryable, tt.wantRetry)
			}
		})
	}
}

func TestTaskError_BreakerWorthy(t *testing.T) {
	worthy := []ErrorKind{KindMemoryLimit, KindBillingLimit}
	for _, k := range worthy {
		if !(&TaskError{Kind: k}).BreakerWorthy() {
			t.Errorf("expected %s to be breaker-worthy", k)
		}
	}
	notWorthy := []ErrorKind{KindRateLimit, KindTimeout, KindNotFound, KindUnknown}
	for _, k := range notWorthy {
		if (&TaskError{Kind: k}).BreakerWorthy() {
			t.Errorf("expected %s not to be breaker-worthy", k)
		}
	}
}

func TestAsTaskError_UnwrapsChain(t *testing.T) {
	inner := &TaskError{Kind: KindRateLimit, Retryable: true}
	wrapped := errors.Join(errors.New("outer"), inner)

	te := AsTaskError(wrapped)
	if te.Kind != KindRateLimit {
		t.Errorf("kind = %s, want %s", te.Kind, KindRateLimit)
	}
}

func TestAsTaskError_ClassifiesFresh(t *testing.T) {
	te := AsTaskError(errors.New("rate limit exceeded"))
	if te.Kind != KindRateLimit {
		t.Errorf("kind = %s, want %s", te.Kind, KindRateLimit)
	}
}

func TestTaskError_ErrorString(t *testing.T) {
	te := &TaskError{Kind: KindTimeout, Err: errors.New("boom")}
	if got := te.Error(); got != "timeout: boom" {
		t.Errorf("Error() = %q", got)
	}
	bare := &TaskError{Kind: KindUnknown}
	if got := bare.Error(); got != "unknown" {
		t.Errorf("Error() = %q", got)
	}
}
