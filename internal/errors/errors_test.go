package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryOrder, "paper", "submit", "position already open for SPY")
	assert.Equal(t, "[order:paper] submit: position already open for SPY", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := Wrap(CategoryNotify, "telegram", "send", "alert failed", cause)
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.ErrorIs(t, wrapped, cause)
}

func TestCategoryOf(t *testing.T) {
	err := New(CategoryData, "csv_feed", "load", "failed to read header")
	assert.Equal(t, CategoryData, CategoryOf(err))

	// Survives further wrapping
	outer := fmt.Errorf("loading market data: %w", err)
	assert.Equal(t, CategoryData, CategoryOf(outer))

	assert.Equal(t, CategoryInternal, CategoryOf(stderrors.New("plain")))
	assert.Equal(t, CategoryInternal, CategoryOf(nil))
}

func TestRetryable(t *testing.T) {
	err := New(CategoryNotify, "telegram", "send", "timeout").AsRetryable()
	assert.True(t, IsRetryable(err))
	assert.True(t, IsRetryable(fmt.Errorf("outer: %w", err)))
	assert.False(t, IsRetryable(New(CategoryOrder, "paper", "submit", "no shares")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}
