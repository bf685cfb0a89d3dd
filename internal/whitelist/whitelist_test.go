package whitelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWhitelist(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAndAllowedIsCaseInsensitive(t *testing.T) {
	path := writeWhitelist(t, `{"sui": ["0xABC", "0xdef"]}`)

	l, err := Load(path)
	require.NoError(t, err)

	assert.True(t, l.Allowed("sui", "0xabc"))
	assert.True(t, l.Allowed("sui", "0xDEF"))
	assert.False(t, l.Allowed("sui", "0x123"))
}

func TestAllowedUnknownChainRejected(t *testing.T) {
	path := writeWhitelist(t, `{"sui": ["0xabc"]}`)
	l, err := Load(path)
	require.NoError(t, err)

	assert.False(t, l.Allowed("ethereum", "0xabc"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/whitelist.json")
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeWhitelist(t, `not json`)
	_, err := Load(path)
	assert.Error(t, err)
}
