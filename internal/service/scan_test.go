package service

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeSubpath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty defaults to root", "", ".", false},
		{"plain subpath", "contracts/vesting", "contracts/vesting", false},
		{"leading slash stripped", "/contracts", "contracts", false},
		{"escape rejected", "../other", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safeSubpath(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, "0", exitStatus(nil))
	assert.Equal(t, "boom", exitStatus(errors.New("boom")))

	err := exec.Command("sh", "-c", "exit 3").Run()
	require.Error(t, err)
	assert.Equal(t, "3", exitStatus(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 5))
}

func TestWriteProjectTree(t *testing.T) {
	t.Run("writes and normalizes paths", func(t *testing.T) {
		dir := t.TempDir()
		normalized, err := writeProjectTree(map[string]string{
			"aiken.toml":             "[project]",
			"/validators/vesting.ak": "validator vesting { }",
		}, dir)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"aiken.toml":            "[project]",
			"validators/vesting.ak": "validator vesting { }",
		}, normalized)

		content, err := os.ReadFile(filepath.Join(dir, "validators", "vesting.ak"))
		require.NoError(t, err)
		assert.Equal(t, "validator vesting { }", string(content))
	})

	t.Run("rejects escaping paths", func(t *testing.T) {
		dir := t.TempDir()
		_, err := writeProjectTree(map[string]string{"../evil.ak": "x"}, dir)
		require.Error(t, err)
	})
}

func TestCollectSourceFiles(t *testing.T) {
	writeFile := func(t *testing.T, dir, rel, content string) {
		t.Helper()
		target := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	}

	newService := func(t *testing.T, mutate func(o *ScanServiceOptions)) *ScanService {
		t.Helper()
		opts := ScanServiceOptions{}
		if mutate != nil {
			mutate(&opts)
		}
		return MustNewScanService(opts)
	}

	t.Run("collects ak and toml only, skipping .git", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "aiken.toml", "[project]")
		writeFile(t, dir, "validators/vesting.ak", "validator vesting { }")
		writeFile(t, dir, "README.md", "docs")
		writeFile(t, dir, ".git/config", "[core]")

		svc := newService(t, nil)
		got, err := svc.collectSourceFiles(dir)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"aiken.toml":            "[project]",
			"validators/vesting.ak": "validator vesting { }",
		}, got)
	})

	t.Run("oversized files skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "small.ak", "ok")
		writeFile(t, dir, "big.ak", strings.Repeat("x", 100))

		svc := newService(t, func(o *ScanServiceOptions) {
			o.MaxFileBytes = 50
		})
		got, err := svc.collectSourceFiles(dir)
		require.NoError(t, err)
		assert.Contains(t, got, "small.ak")
		assert.NotContains(t, got, "big.ak")
	})

	t.Run("file count cap", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.ak", "a")
		writeFile(t, dir, "b.ak", "b")
		writeFile(t, dir, "c.ak", "c")

		svc := newService(t, func(o *ScanServiceOptions) {
			o.MaxSourceFiles = 2
		})
		got, err := svc.collectSourceFiles(dir)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		// Collection is ordered by relative path, so the cap is deterministic.
		assert.Contains(t, got, "a.ak")
		assert.Contains(t, got, "b.ak")
	})
}

func TestScanService_AllowedRepoHosts(t *testing.T) {
	svc := MustNewScanService(ScanServiceOptions{})
	assert.Equal(t, DefaultAllowedRepoHosts, svc.AllowedRepoHosts())

	custom := MustNewScanService(ScanServiceOptions{
		AllowedRepoHosts: []string{"git.example.com"},
	})
	assert.Equal(t, []string{"git.example.com"}, custom.AllowedRepoHosts())
}
