package templates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerboost/internal/errors"
)

const catalogYAML = `default: modern
templates:
  - id: classic
    name: Classic
    description: Serif
  - id: modern
    name: Modern
  - id: gold
    premium: true
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewDefault(t *testing.T) {
	c := NewDefault("classic")
	assert.Equal(t, "classic", c.Default())
	assert.Len(t, c.List(), len(defaultCatalog))

	tpl, err := c.Get("executive")
	require.NoError(t, err)
	assert.True(t, tpl.Premium)

	// unknown default falls back to the first template
	assert.Equal(t, "classic", NewDefault("missing").Default())
}

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalog(t, catalogYAML), "classic", nil)
	require.NoError(t, err)

	assert.Equal(t, "modern", c.Default())
	require.Len(t, c.List(), 3)

	gold, err := c.Get("gold")
	require.NoError(t, err)
	assert.Equal(t, "gold", gold.Name, "missing names default to the id")
	assert.True(t, gold.Premium)

	_, err = c.Get("nope")
	assert.True(t, errors.HasCode(err, ErrCodeUnknownTemplate))
}

func TestLoad_EmptyPathUsesBuiltIn(t *testing.T) {
	c, err := Load("", "modern", nil)
	require.NoError(t, err)
	assert.Equal(t, "modern", c.Default())
	assert.NoError(t, c.Watch(0, nil))
	assert.NoError(t, c.Close())
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":        "templates: [",
		"empty":           "templates: []",
		"missing id":      "templates:\n  - name: x\n",
		"duplicate":       "templates:\n  - id: a\n  - id: a\n",
		"unknown default": "default: z\ntemplates:\n  - id: a\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse([]byte(content))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestWatch_ReloadsAndKeepsPreviousOnError(t *testing.T) {
	path := writeCatalog(t, catalogYAML)
	c, err := Load(path, "", nil)
	require.NoError(t, err)

	reloaded := make(chan error, 4)
	require.NoError(t, c.Watch(20*time.Millisecond, func(err error) { reloaded <- err }))
	defer func() { _ = c.Close() }()

	touch := func(content string, offset time.Duration) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		mt := time.Now().Add(offset)
		require.NoError(t, os.Chtimes(path, mt, mt))
	}

	touch("templates:\n  - id: solo\n", 2*time.Second)
	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	assert.Equal(t, "solo", c.Default())

	touch("templates: [", 4*time.Second)
	select {
	case err := <-reloaded:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("catalog reload was not attempted")
	}
	_, err = c.Get("solo")
	assert.NoError(t, err, "previous catalog should survive a bad file")
}
