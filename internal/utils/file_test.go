package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	info, err := ValidateInputFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size())

	_, err = ValidateInputFile(path, 5)
	assert.ErrorContains(t, err, "larger than the 5 B limit")

	_, err = ValidateInputFile(dir, 0)
	assert.ErrorContains(t, err, "directory")

	_, err = ValidateInputFile(filepath.Join(dir, "missing.pdf"), 0)
	assert.ErrorContains(t, err, "does not exist")

	_, err = ValidateInputFile("", 0)
	assert.Error(t, err)
}

func TestEnsureOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "reports", "2024", "resume.md")

	require.NoError(t, EnsureOutputDir(out))
	assert.DirExists(t, filepath.Dir(out))
	assert.NoError(t, EnsureOutputDir(""))
	assert.NoError(t, EnsureOutputDir("resume.md"))
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
		3 << 30:         "3.0 GB",
	}
	for size, want := range tests {
		assert.Equal(t, want, FormatFileSize(size), "size %d", size)
	}
}
