package themes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCodebook(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codebook.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCodebook(t *testing.T) {
	path := writeCodebook(t, `{"themes":[
		{"name":"cost","keywords":["expensive","Price"]},
		{"name":"speed","keywords":["slow"]}
	]}`)

	cb, err := LoadCodebook(path)
	require.NoError(t, err)
	assert.Equal(t, []Theme{"cost", "speed"}, cb.Themes())
	assert.Equal(t, []Theme{"cost"}, cb.Code("the PRICE was too high"))
}

func TestLoadCodebook_Errors(t *testing.T) {
	_, err := LoadCodebook(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadCodebook(writeCodebook(t, `{"themes":[]}`))
	assert.ErrorContains(t, err, "no themes")

	_, err = LoadCodebook(writeCodebook(t, `{"themes":[{"name":"cost","keywords":[]}]}`))
	assert.ErrorContains(t, err, "no keywords")

	_, err = LoadCodebook(writeCodebook(t, `{"themes":[
		{"name":"cost","keywords":["a"]},
		{"name":"cost","keywords":["b"]}
	]}`))
	assert.ErrorContains(t, err, "listed twice")
}
