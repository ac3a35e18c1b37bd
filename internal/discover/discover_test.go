package discover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	return dir
}

func TestResolveSingleMatches(t *testing.T) {
	dir := dataDir(t, "ehr_2024.csv", "ETAK_EESTI.zip", "README.txt")
	r := NewResolver(dir, Prompt{}, nil)

	src, err := r.Resolve(Sources{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ehr_2024.csv"), src.Registry)
	assert.Equal(t, filepath.Join(dir, "ETAK_EESTI.zip"), src.Archive)
}

func TestResolvePrompts(t *testing.T) {
	dir := dataDir(t, "ehr_b.csv", "ehr_a.csv", "ETAK_1.zip", "ETAK_2.zip")
	var out strings.Builder
	r := NewResolver(dir, Prompt{In: strings.NewReader("2\n1\n"), Out: &out}, nil)

	src, err := r.Resolve(Sources{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ehr_b.csv"), src.Registry)
	assert.Equal(t, filepath.Join(dir, "ETAK_1.zip"), src.Archive)
	assert.Contains(t, out.String(), "1. ehr_a.csv\n2. ehr_b.csv\nWhich one: ")
}

func TestResolveInvalidChoice(t *testing.T) {
	for _, answer := range []string{"0\n", "3\n", "x\n", "-1\n", ""} {
		dir := dataDir(t, "ehr_a.csv", "ehr_b.csv", "ETAK_1.zip")
		r := NewResolver(dir, Prompt{In: strings.NewReader(answer)}, nil)

		src, err := r.Resolve(Sources{})
		assert.ErrorIs(t, err, ErrMissingInput, "answer %q", answer)
		assert.Empty(t, src.Registry)
		assert.NotEmpty(t, src.Archive)
	}
}

func TestResolveNothingFound(t *testing.T) {
	dir := dataDir(t, "notes.csv", "etak.zip")
	r := NewResolver(dir, Prompt{}, nil)

	_, err := r.Resolve(Sources{})
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "registry or archive")
}

func TestResolveKeepsPreset(t *testing.T) {
	preset := Sources{Registry: "/x/ehr.csv", Archive: "/x/ETAK.zip"}
	r := NewResolver(filepath.Join(t.TempDir(), "does-not-exist"), Prompt{}, nil)

	src, err := r.Resolve(preset)
	require.NoError(t, err)
	assert.Equal(t, preset, src)
}

func TestResolveMissingDir(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "nope"), Prompt{}, nil)
	_, err := r.Resolve(Sources{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestPatterns(t *testing.T) {
	assert.True(t, RegistryPattern.MatchString("ehr_export.csv"))
	assert.True(t, RegistryPattern.MatchString("ehr.csv.bak"))
	assert.False(t, RegistryPattern.MatchString("old_ehr.csv"))
	assert.True(t, ArchivePattern.MatchString("ETAK_EESTI_SHP.zip"))
	assert.False(t, ArchivePattern.MatchString("etak.zip"))
}
