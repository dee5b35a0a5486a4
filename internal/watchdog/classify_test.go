package watchdog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cortado-Group/website-watchdog/internal/probe"
	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

func testTarget() *storage.Target {
	return &storage.Target{
		ID:             1,
		Name:           "Test Service",
		URL:            "https://example.com/health",
		Method:         "GET",
		ExpectedStatus: 200,
		Timeout:        10,
		Contains:       "healthy",
	}
}

func TestClassifySuccess(t *testing.T) {
	target := testTarget()

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 200,
		Body:       "Status: healthy",
		Elapsed:    42.5,
	})

	assert.Equal(t, storage.StatusSuccess, check.Status)
	require.NotNil(t, check.StatusCode)
	assert.Equal(t, 200, *check.StatusCode)
	require.NotNil(t, check.ResponseTime)
	assert.Equal(t, 42.5, *check.ResponseTime)
	assert.Nil(t, check.ErrorMessage)
}

func TestClassifyContentMismatch(t *testing.T) {
	target := testTarget()

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 200,
		Body:       "Status: degraded",
		Elapsed:    10,
	})

	assert.Equal(t, storage.StatusFailure, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Contains(t, *check.ErrorMessage, "Expected content 'healthy' not found")
	// The response itself arrived, so code and time are still recorded.
	require.NotNil(t, check.StatusCode)
	assert.Equal(t, 200, *check.StatusCode)
	assert.NotNil(t, check.ResponseTime)
}

func TestClassifyStatusMismatch(t *testing.T) {
	target := testTarget()

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 500,
		Body:       "Status: healthy",
		Elapsed:    10,
	})

	assert.Equal(t, storage.StatusFailure, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Equal(t, "Expected 200, got 500", *check.ErrorMessage)
}

func TestClassifyStatusCheckedBeforeContent(t *testing.T) {
	// Both expectations fail; the status mismatch message wins.
	target := testTarget()

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 503,
		Body:       "Status: degraded",
		Elapsed:    10,
	})

	assert.Equal(t, storage.StatusFailure, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Equal(t, "Expected 200, got 503", *check.ErrorMessage)
}

func TestClassifyTimeout(t *testing.T) {
	target := testTarget()

	check := Classify(target, probe.Outcome{Kind: probe.TimedOut})

	assert.Equal(t, storage.StatusTimeout, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Equal(t, "Timeout after 10s", *check.ErrorMessage)
	assert.Nil(t, check.StatusCode)
	assert.Nil(t, check.ResponseTime)
}

func TestClassifyTransportError(t *testing.T) {
	target := testTarget()

	check := Classify(target, probe.Outcome{
		Kind: probe.TransportError,
		Err:  errors.New("connection refused"),
	})

	assert.Equal(t, storage.StatusError, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Equal(t, "connection refused", *check.ErrorMessage)
	assert.Nil(t, check.StatusCode)
	assert.Nil(t, check.ResponseTime)
}

func TestClassifyNoContainsRequirement(t *testing.T) {
	target := testTarget()
	target.Contains = ""

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 200,
		Body:       "whatever",
		Elapsed:    5,
	})

	assert.Equal(t, storage.StatusSuccess, check.Status)
}

func TestClassifyNonDefaultExpectedStatus(t *testing.T) {
	target := testTarget()
	target.ExpectedStatus = 204
	target.Contains = ""

	check := Classify(target, probe.Outcome{
		Kind:       probe.Completed,
		StatusCode: 200,
		Elapsed:    5,
	})

	assert.Equal(t, storage.StatusFailure, check.Status)
	require.NotNil(t, check.ErrorMessage)
	assert.Equal(t, "Expected 204, got 200", *check.ErrorMessage)
}
