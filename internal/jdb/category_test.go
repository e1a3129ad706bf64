package jdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, name := range Categories() {
		c, err := ParseCategory(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	c, err := ParseCategory(" Step_Up ")
	require.NoError(t, err)
	assert.Equal(t, CategoryStepUp, c)

	_, err = ParseCategory("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategoryGates(t *testing.T) {
	st := &State{ReadyForBreakpoints: true}
	assert.True(t, st.gateOpen(CategorySetBreakpoint))
	assert.True(t, st.gateOpen(CategoryRun))
	assert.False(t, st.gateOpen(CategoryClearBreakpoint))
	assert.False(t, st.gateOpen(CategoryListThreads))
	st.ReadyForCommands = true
	assert.True(t, st.gateOpen(CategoryContinue))
}
