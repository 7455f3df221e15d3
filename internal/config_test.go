package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)
	config, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, config.APIURL)
	assert.Equal(t, 100*time.Second, config.APITimeout)
	assert.Equal(t, 1, config.LastNDays)
	assert.Equal(t, 4, config.Parallel)
	assert.Equal(t, 0, config.Limit)
	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, 24*time.Hour, config.CacheTTL)
	assert.False(t, config.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("api:\n  url: http://localhost:8080/api/\n  timeout: 5s\nlimit: 10\nparallel: 200\n"), 0600))
	v, err := NewViper(fn)
	require.NoError(t, err)
	config, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", config.APIURL)
	assert.Equal(t, 5*time.Second, config.APITimeout)
	assert.Equal(t, 10, config.Limit)
	assert.Equal(t, 99, config.Parallel)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("EDS_SENSORS_SAMPLE_LAST_N_DAYS", "7")
	t.Setenv("EDS_SENSORS_DATA_DIR", "/tmp/sensors")
	v, err := NewViper("")
	require.NoError(t, err)
	config, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 7, config.LastNDays)
	assert.Equal(t, "/tmp/sensors", config.DataDir)
}

func TestLoadConfigInvalid(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)
	v.Set("sample.last_n_days", 0)
	_, err = LoadConfig(v)
	assert.Error(t, err)

	_, err = NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
