package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/festivalops/research-cli/internal/resilience"
)

func TestFormatBreaker(t *testing.T) {
	b := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	})
	b.RecordFailure()

	var buf bytes.Buffer
	formatBreaker(&buf, b, 3, time.Minute)

	out := buf.String()
	assert.Contains(t, out, "Failure threshold:")
	assert.Contains(t, out, "1m0s")
	assert.Contains(t, out, "Open:")
	assert.Contains(t, out, "false")
	assert.Contains(t, out, "Failures:")
	assert.Contains(t, out, "1")
}
