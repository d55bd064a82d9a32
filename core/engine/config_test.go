package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
softDeletes:
  retentionOperations: 1024
commits:
  verifyChecksums: true
logLevel: debug
`))
	require.NoError(t, err)
	assert.True(t, cfg.SoftDeletes.Enabled, "defaults are kept")
	assert.Equal(t, int64(1024), cfg.SoftDeletes.RetentionOperations)
	assert.True(t, cfg.Commits.VerifyChecksums)
	assert.Equal(t, DEFAULT_CODEC_NAME, cfg.Codec.Name)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	for _, doc := range []string{
		"softDeletes:\n  retentionOperations: -1\n",
		"codec:\n  name: Lucene41\n",
		"logLevel: loud\n",
		"softDeletes: [1, 2]\n",
	} {
		_, err := ParseConfig([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "engine.yml")
	require.NoError(t, os.WriteFile(path, []byte("softDeletes:\n  enabled: false\n"), 0644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.SoftDeletes.Enabled)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
