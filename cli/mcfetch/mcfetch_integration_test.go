//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cperrin88/mcfetch/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--no-progress"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setupConfig creates a config file whose game directory is a temp dir.
func setupConfig(t *testing.T, assetBase string) (cfgPath, gameDir string) {
	t.Helper()
	root := t.TempDir()
	cfgPath = filepath.Join(root, "config.yaml")
	gameDir = filepath.Join(root, "game")

	_, err := run(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "config", "set", "game_dir", gameDir)
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "config", "set", "retry_base_delay", "1ms")
	require.NoError(t, err)
	if assetBase != "" {
		_, err = run(t, "--config", cfgPath, "config", "set", "asset_base_url", assetBase)
		require.NoError(t, err)
	}
	return cfgPath, gameDir
}

func TestConfigCommands(t *testing.T) {
	cfgPath, gameDir := setupConfig(t, "")

	out, err := run(t, "--config", cfgPath, "config", "get", "game_dir")
	require.NoError(t, err)
	assert.Equal(t, gameDir, strings.TrimSpace(out))

	out, err = run(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_concurrent_downloads")

	_, err = run(t, "--config", cfgPath, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "--config", cfgPath, "config", "set", "max_concurrent_downloads", "0")
	require.Error(t, err)

	_, err = run(t, "--config", cfgPath, "config", "get", "no_such_key")
	require.Error(t, err)

	_, err = run(t, "--config", cfgPath, "config", "set", "retry_attempts", "5", "max_concurrent_downloads", "65")
	require.Error(t, err)
	out, err = run(t, "--config", cfgPath, "config", "get", "retry_attempts")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	_, err = run(t, "--config", cfgPath, "config", "set", "retry_attempts", "5", "max_concurrent_downloads", "16")
	require.NoError(t, err)
	out, err = run(t, "--config", cfgPath, "config", "show", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_concurrent_downloads = 16")
	assert.Contains(t, out, "retry_attempts = 5")

	out, err = run(t, "--config", cfgPath, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(gameDir, "assets", "objects"))
}

func TestFileAndBatchCommands(t *testing.T) {
	srv := testutil.NewServer(t)
	a := []byte("first file")
	b := []byte("second file")
	aURL := srv.AddFile("/a.bin", a)
	bURL := srv.AddFile("/b.bin", b)

	cfgPath, _ := setupConfig(t, "")
	dir := t.TempDir()

	dest := filepath.Join(dir, "single", "a.bin")
	_, err := run(t, "--config", cfgPath, "file", aURL, dest, "--digest", testutil.SHA1Hex(a), "--size", "10")
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = run(t, "--config", cfgPath, "file", aURL, filepath.Join(dir, "bad.bin"), "--digest", testutil.SHA1Hex(b), "--attempts", "1")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "bad.bin"))

	batch := `items:
  - url: ` + aURL + `
    path: out/a.bin
    size: 10
    priority: low
  - url: ` + bURL + `
    path: out/b.bin
    size: 11
    digest: ` + testutil.SHA1Hex(b) + `
    priority: critical
`
	batchPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(batchPath, []byte(batch), 0o644))

	_, err = run(t, "--config", cfgPath, "batch", batchPath, "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "a.bin"))
	assert.FileExists(t, filepath.Join(dir, "out", "b.bin"))
}

func TestVersionAndAssetsCommands(t *testing.T) {
	srv := testutil.NewServer(t)
	client := []byte("client")
	sound := []byte("sound")
	hash := testutil.SHA1Hex(sound)
	srv.AddFile("/"+hash[:2]+"/"+hash, sound)
	index := []byte(`{"objects": {"sound.ogg": {"hash": "` + hash + `", "size": 5}}}`)
	indexURL := srv.AddFile("/indexes/1.json", index)
	clientURL := srv.AddFile("/client.jar", client)

	manifestJSON := `{
  "id": "test-1",
  "assetIndex": {"id": "1", "url": "` + indexURL + `", "sha1": "` + testutil.SHA1Hex(index) + `", "size": ` + strconv.Itoa(len(index)) + `},
  "downloads": {"client": {"url": "` + clientURL + `", "sha1": "` + testutil.SHA1Hex(client) + `", "size": 6}},
  "libraries": []
}`
	manifestURL := srv.AddFile("/versions/test-1.json", []byte(manifestJSON))

	cfgPath, gameDir := setupConfig(t, srv.URL)

	_, err := run(t, "--config", cfgPath, "version", manifestURL, "--assets")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(gameDir, "versions", "test-1", "test-1.jar"))
	assert.FileExists(t, filepath.Join(gameDir, "versions", "test-1", "test-1.json"))
	assert.FileExists(t, filepath.Join(gameDir, "assets", "indexes", "1.json"))
	assert.FileExists(t, filepath.Join(gameDir, "assets", "objects", hash[:2], hash))

	_, err = run(t, "--config", cfgPath, "assets", "missing")
	require.Error(t, err)
}

func TestAboutCommand(t *testing.T) {
	out, err := run(t, "about")
	require.NoError(t, err)
	assert.Contains(t, out, "mcfetch version")
}
