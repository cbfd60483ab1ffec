package helper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageFileStaysInDir(t *testing.T) {
	dir := t.TempDir()
	path, err := StageFile(dir, "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestStageFileRejectsEmptyName(t *testing.T) {
	_, err := StageFile(t.TempDir(), "", []byte("x"))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "hello", Truncate("hello", 0))
	assert.Equal(t, "abé", Truncate("abé", 3))
	assert.Equal(t, "abé", Truncate("abéd", 3))
}

func TestTruncateCountsCharacters(t *testing.T) {
	cjk := strings.Repeat("市场", 10000)
	got := Truncate(cjk, 15000)
	assert.Equal(t, 15000, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(cjk, got))
}

func TestTruncateKeepsTextAfterInvalidByte(t *testing.T) {
	s := "ab\xff" + strings.Repeat("x", 20000)
	got := Truncate(s, 15000)
	assert.Len(t, got, 15000)
	assert.Equal(t, s[:15000], got)
}

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
