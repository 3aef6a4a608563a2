package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

func TestNormalizeFindingPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"temp dir with validators", "/tmp/strike/forwards/validators/collateral.ak", "validators/collateral.ak"},
		{"temp dir with lib", "/tmp/scan-1234/lib/utils.ak", "lib/utils.ak"},
		{"already relative", "validators/vesting.ak", "validators/vesting.ak"},
		{"no anchor falls back to filename", "/opt/work/main.ak", "main.ak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeFindingPath(tt.input))
		})
	}
}

func TestMatchSourceFile(t *testing.T) {
	sources := map[string]string{
		"validators/vesting.ak": "a",
		"lib/utils.ak":          "b",
	}

	tests := []struct {
		name    string
		path    string
		wantKey string
		wantOK  bool
	}{
		{"exact match", "validators/vesting.ak", "validators/vesting.ak", true},
		{"normalized match", "/tmp/x/validators/vesting.ak", "validators/vesting.ak", true},
		{"filename match", "/somewhere/else/utils.ak", "lib/utils.ak", true},
		{"no match", "validators/other.ak", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := matchSourceFile(tt.path, sources)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestExtractSnippet(t *testing.T) {
	var lines []string
	for i := 1; i <= 30; i++ {
		lines = append(lines, strings.Repeat("x", i))
	}
	source := strings.Join(lines, "\n")

	t.Run("marks finding lines", func(t *testing.T) {
		snippet := extractSnippet(source, 15, 16, 2)
		got := strings.Split(snippet, "\n")
		require.Len(t, got, 6)
		assert.True(t, strings.HasPrefix(got[0], "    13 |"))
		assert.True(t, strings.HasPrefix(got[2], ">   15 |"))
		assert.True(t, strings.HasPrefix(got[3], ">   16 |"))
		assert.True(t, strings.HasPrefix(got[5], "    18 |"))
	})

	t.Run("clamps at file start", func(t *testing.T) {
		snippet := extractSnippet(source, 1, 1, 5)
		got := strings.Split(snippet, "\n")
		assert.Len(t, got, 6)
		assert.True(t, strings.HasPrefix(got[0], ">    1 |"))
	})

	t.Run("clamps at file end", func(t *testing.T) {
		snippet := extractSnippet(source, 30, 30, 5)
		got := strings.Split(snippet, "\n")
		assert.Len(t, got, 6)
		assert.True(t, strings.HasPrefix(got[5], ">   30 |"))
	})

	t.Run("line end before line start", func(t *testing.T) {
		snippet := extractSnippet(source, 10, 0, 1)
		assert.Contains(t, snippet, ">   10 |")
	})

	t.Run("invalid line start", func(t *testing.T) {
		assert.Empty(t, extractSnippet(source, 0, 0, 2))
	})
}

func TestFindingSnippet(t *testing.T) {
	sources := map[string]string{
		"validators/vesting.ak": "line one\nline two\nline three",
	}

	t.Run("with location", func(t *testing.T) {
		finding := &model.Finding{
			Location: &model.FindingLocation{Path: "validators/vesting.ak", LineStart: 2, LineEnd: 2},
		}
		snippet := findingSnippet(finding, sources)
		assert.Contains(t, snippet, "line two")
		assert.Contains(t, snippet, ">")
	})

	t.Run("no location", func(t *testing.T) {
		assert.Empty(t, findingSnippet(&model.Finding{}, sources))
	})

	t.Run("unmatched path", func(t *testing.T) {
		finding := &model.Finding{
			Location: &model.FindingLocation{Path: "validators/missing.ak", LineStart: 1},
		}
		assert.Empty(t, findingSnippet(finding, sources))
	})
}

func TestFullModuleSource(t *testing.T) {
	short := "a\nb\nc"
	long := strings.Repeat("line\n", 300)

	sources := map[string]string{
		"validators/short.ak": short,
		"validators/long.ak":  long,
	}

	finding := func(path string) *model.Finding {
		return &model.Finding{Location: &model.FindingLocation{Path: path, LineStart: 1}}
	}

	assert.Equal(t, short, fullModuleSource(finding("validators/short.ak"), sources))
	assert.Empty(t, fullModuleSource(finding("validators/long.ak"), sources))
	assert.Empty(t, fullModuleSource(&model.Finding{}, sources))
}
