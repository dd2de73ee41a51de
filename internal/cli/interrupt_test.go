package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	assert.NotNil(t, NewInterruptHandler(nil).writer)

	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)
	assert.Same(t, &buf, h.writer)
	assert.False(t, h.WasInterrupted())
}

func TestInterruptHandler_Interrupt(t *testing.T) {
	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)

	ctx := h.HandleInterrupts(context.Background())
	select {
	case <-ctx.Done():
		t.Fatal("context canceled before interrupt")
	default:
	}

	h.interrupt()
	h.interrupt()

	<-ctx.Done()
	assert.True(t, h.WasInterrupted())
	assert.Equal(t, 1, strings.Count(buf.String(), "Interrupted"))
}
