package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metorial/tattr/internal/models"
)

type fakeFacts struct {
	hostname string
	facts    map[string]string
	err      error
}

func (f *fakeFacts) Hostname() string { return f.hostname }

func (f *fakeFacts) Collect(context.Context) (map[string]string, error) {
	return f.facts, f.err
}

type registration struct {
	hostname string
	tags     []string
	attrs    map[string]string
}

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []registration
	err   error
}

func (f *fakeRegistrar) RegisterHost(_ context.Context, hostname string, tags []string, attrs map[string]string) (*models.Host, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, registration{hostname: hostname, tags: tags, attrs: attrs})
	return &models.Host{Hostname: hostname, Tags: tags, Attributes: attrs}, nil
}

func (f *fakeRegistrar) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRegisterOnce(t *testing.T) {
	facts := &fakeFacts{hostname: "node1", facts: map[string]string{FactOS: "linux", FactCPUCores: "8"}}
	reg := &fakeRegistrar{}

	host, err := New(reg, facts, []string{"agent", "prod"}).RegisterOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node1", host.Hostname)

	require.Len(t, reg.calls, 1)
	assert.Equal(t, registration{
		hostname: "node1",
		tags:     []string{"agent", "prod"},
		attrs:    map[string]string{FactOS: "linux", FactCPUCores: "8"},
	}, reg.calls[0])
}

func TestRegisterOnceErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(&fakeRegistrar{}, &fakeFacts{hostname: "node1", err: boom}, nil).RegisterOnce(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = New(&fakeRegistrar{err: boom}, &fakeFacts{hostname: "node1"}, nil).RegisterOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunRegistersPeriodically(t *testing.T) {
	reg := &fakeRegistrar{}
	a := New(reg, &fakeFacts{hostname: "node1", facts: map[string]string{}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, 20*time.Millisecond) }()

	require.Eventually(t, func() bool { return reg.count() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunStopsOnRegistrationFailure(t *testing.T) {
	boom := errors.New("server gone")
	a := New(&fakeRegistrar{err: boom}, &fakeFacts{hostname: "node1"}, nil)

	err := a.Run(context.Background(), time.Hour)
	assert.ErrorIs(t, err, boom)
}

func TestFactCollector(t *testing.T) {
	fc, err := NewFactCollector("")
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Hostname())

	named, err := NewFactCollector("override")
	require.NoError(t, err)
	assert.Equal(t, "override", named.Hostname())

	facts, err := fc.Collect(context.Background())
	if err != nil && strings.Contains(err.Error(), "not implemented yet") {
		t.Skip("Skipping: host facts not available on this platform")
	}
	require.NoError(t, err)

	assert.NotEmpty(t, facts[FactOS])
	assert.NotEmpty(t, facts[FactCPUCores])
	assert.NotEqual(t, "0", facts[FactCPUCores])
	assert.NotEmpty(t, facts[FactMemoryBytes])
	for k, v := range facts {
		assert.NotEmpty(t, v, k)
	}
}
