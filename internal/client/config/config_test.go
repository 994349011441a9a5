package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	v := NewViper()
	v.Set(KeyDataDir, dir)

	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:50051", c.ServerAddr)
	assert.Equal(t, schema.Native, c.Platform)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 2*time.Minute, c.SyncTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, filepath.Join(dir, "gigbook.log"), c.LogFile)
	assert.Equal(t, filepath.Join(dir, "gigbook.db"), c.DBPath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "server_addr: files.example:1\nplatform: web\nrequest_timeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("GIGBOOK_SERVER_ADDR", "env.example:2")

	v := NewViper()
	v.Set(KeyDataDir, dir)
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "env.example:2", c.ServerAddr)
	assert.Equal(t, schema.Web, c.Platform)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
}

func TestLoad_DataDirFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	t.Setenv("GIGBOOK_DATA_DIR", dir)

	c, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, dir, c.DataDir)
	assert.DirExists(t, dir)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	v := NewViper()
	v.Set(KeyDataDir, dir)
	v.Set(KeyPlatform, "desktop")
	_, err := Load(v)
	require.ErrorContains(t, err, "platform")

	v = NewViper()
	v.Set(KeyDataDir, dir)
	v.Set(KeySyncTimeout, "0s")
	_, err = Load(v)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server_addr: [oops"), 0o600))
	v = NewViper()
	v.Set(KeyDataDir, dir)
	_, err = Load(v)
	require.ErrorContains(t, err, "read config")
}
