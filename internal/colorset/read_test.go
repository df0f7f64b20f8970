package colorset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutfit/internal/errs"
)

func TestReadPoints(t *testing.T) {
	t.Parallel()

	want := []Point3{{0.1, 0.2, 0.3}, {1, 0, 0.5}}

	cases := []struct {
		name  string
		delim rune
		input string
	}{
		{"space", Space, "0.1 0.2 0.3\n1   0\t0.5\n"},
		{"comma", Comma, "0.1,0.2,0.3\n1, 0, 0.5\n"},
		{"semicolon", Semicolon, "0.1;0.2;0.3\n1;0;0.5"},
		{"tab", Tab, "0.1\t0.2\t0.3\r\n1\t0\t0.5\r\n"},
		{"blank lines", Space, "\n0.1 0.2 0.3\n\n   \n1 0 0.5\n\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadPoints(strings.NewReader(tc.input), tc.delim)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestReadPointsErrors(t *testing.T) {
	t.Parallel()

	t.Run("two fields", func(t *testing.T) {
		t.Parallel()
		_, err := ReadPoints(strings.NewReader("0 0 0\n\n0.5 0.5\n"), Space)
		require.ErrorIs(t, err, errs.ErrIO)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("not a number", func(t *testing.T) {
		t.Parallel()
		_, err := ReadPoints(strings.NewReader("0 0 0\n0 x 0\n"), Space)
		require.ErrorIs(t, err, errs.ErrIO)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("not finite", func(t *testing.T) {
		t.Parallel()
		for _, input := range []string{"0 0 0\n\n0 NaN 0\n", "0 0 0\n\n1 0 +Inf\n", "0 0 0\n\n-inf 0 0\n"} {
			_, err := ReadPoints(strings.NewReader(input), Space)
			require.ErrorIs(t, err, errs.ErrIO, input)
			assert.Contains(t, err.Error(), "line 3", input)
		}
	})

	t.Run("wrong delimiter", func(t *testing.T) {
		t.Parallel()
		_, err := ReadPoints(strings.NewReader("0,0,0\n"), Space)
		require.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("unsupported delimiter", func(t *testing.T) {
		t.Parallel()
		_, err := ReadPoints(strings.NewReader("0|0|0\n"), '|')
		require.ErrorIs(t, err, errs.ErrConfig)
	})
}

func TestReadPointsEmpty(t *testing.T) {
	got, err := ReadPoints(strings.NewReader("\n\n"), Space)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 0 0\n1 1 1\n"), 0644))

	got, err := ReadFile(path, Space)
	require.NoError(t, err)
	assert.Equal(t, []Point3{{0, 0, 0}, {1, 1, 1}}, got)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"), Space)
	assert.ErrorIs(t, err, errs.ErrIO)
}
