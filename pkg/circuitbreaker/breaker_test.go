package circuitbreaker

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.MinRequests = 2
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo_PassesResultThrough(t *testing.T) {
	b := New(testConfig(), discardLogger())

	got, err := Do(b, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestDo_TripsAfterFailures(t *testing.T) {
	b := New(testConfig(), discardLogger())

	for range 2 {
		_, err := Do(b, func() (int, error) { return 0, errBackend })
		assert.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	_, err := Do(b, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.True(t, IsOpen(err))
	assert.False(t, called)
}

func TestDo_RecoversAfterTimeout(t *testing.T) {
	b := New(testConfig(), discardLogger())
	for range 2 {
		_, _ = Do(b, func() (int, error) { return 0, errBackend })
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(80 * time.Millisecond)

	got, err := Do(b, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestDo_IsSuccessfulIgnoresExpectedErrors(t *testing.T) {
	errMiss := errors.New("miss")
	cfg := testConfig()
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errMiss) }
	b := New(cfg, discardLogger())

	for range 5 {
		_, err := Do(b, func() (string, error) { return "", errMiss })
		assert.ErrorIs(t, err, errMiss)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errBackend))
}
