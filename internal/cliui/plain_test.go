package cliui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.UpdateProgress(ProgressEvent{
		Stage:       StageFetching,
		Current:     5,
		Total:       20,
		CurrentItem: "tokio::runtime::Runtime",
	})

	output := buf.String()
	assert.Contains(t, output, "[FETCH]")
	assert.Contains(t, output, "5/20")
	assert.Contains(t, output, "tokio::runtime::Runtime")
}

func TestPlainRenderer_UpdateProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.UpdateProgress(ProgressEvent{Stage: StageResolving, Message: "resolving latest version"})

	output := buf.String()
	assert.Contains(t, output, "[RESOLVE]")
	assert.Contains(t, output, "resolving latest version")
	assert.NotContains(t, output, "0/0")
}

func TestPlainRenderer_AddError_Warning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.AddError(ErrorEvent{Item: "tokio::sync::Mutex", Err: errors.New("docs.rs timeout"), IsWarn: true})

	output := buf.String()
	assert.Contains(t, output, "WARN:")
	assert.Contains(t, output, "tokio::sync::Mutex")
	assert.Contains(t, output, "docs.rs timeout")
}

func TestPlainRenderer_AddError_NoItem(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.AddError(ErrorEvent{Err: errors.New("connection refused")})

	output := buf.String()
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "connection refused")
}

func TestPlainRenderer_Complete_WithErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	r.Complete(CompletionStats{
		Package:  "tokio",
		Version:  "1.38.0",
		Items:    42,
		Duration: 5 * time.Second,
		Errors:   2,
		Warnings: 1,
	})

	output := buf.String()
	assert.Contains(t, output, "tokio@1.38.0")
	assert.Contains(t, output, "42 items")
	assert.Contains(t, output, "2 errors")
	assert.Contains(t, output, "1 warnings")
}

func TestPlainRenderer_StartStop(t *testing.T) {
	r := NewPlainRenderer(Config{Output: &bytes.Buffer{}})

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestPlainRenderer_ThreadSafe(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(n int) {
			r.UpdateProgress(ProgressEvent{Stage: StageFetching, Current: n, Total: 10})
			r.AddError(ErrorEvent{Item: "item", Err: errors.New("x"), IsWarn: n%2 == 0})
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.NotEmpty(t, buf.String())
}

func TestNewRenderer_NonTTYReturnsPlainRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(Config{Output: buf})

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok, "a bytes.Buffer is never a TTY, so NewRenderer must fall back to plain output")
}
