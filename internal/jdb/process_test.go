package jdb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEnv(t *testing.T) {
	t.Setenv("JDBRUN_TEST_OS", "os")
	env := mergeEnv(
		map[string]string{"JDBRUN_TEST_OS": "file", "JDBRUN_TEST_FILE": "file"},
		map[string]string{"JDBRUN_TEST_FILE": "override"},
	)
	assert.Equal(t, "os", env["JDBRUN_TEST_OS"])
	assert.Equal(t, "override", env["JDBRUN_TEST_FILE"])
}

func TestTargetEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JDBRUN_TEST_DOTENV=from-file\n"), 0o644))

	env, err := targetEnv(path, map[string]string{"JDBRUN_TEST_EXTRA": "x"})
	require.NoError(t, err)
	assert.Contains(t, env, "JDBRUN_TEST_DOTENV=from-file")
	assert.Contains(t, env, "JDBRUN_TEST_EXTRA=x")

	_, err = targetEnv(filepath.Join(dir, "missing.env"), nil)
	assert.Error(t, err)
}

func TestPumpChunks(t *testing.T) {
	var got strings.Builder
	err := pumpChunks(iotest.OneByteReader(strings.NewReader("main[1] ")), func(b []byte) { got.Write(b) })
	require.NoError(t, err)
	assert.Equal(t, "main[1] ", got.String())

	boom := errors.New("boom")
	err = pumpChunks(iotest.ErrReader(boom), func([]byte) {})
	assert.ErrorIs(t, err, boom)
}

func TestPumpLines(t *testing.T) {
	var lines []string
	pumpLines(strings.NewReader("a\nb\nc"), func(l string) { lines = append(lines, l) })
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}
