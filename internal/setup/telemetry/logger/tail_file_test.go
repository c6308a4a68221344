package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robalyx/imagegate/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestTailFile(t *testing.T) {
	t.Parallel()

	t.Run("compacts to the newest lines", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "main.log")

		file, err := logger.OpenTailFile(path, 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })

		for i := 1; i <= 5; i++ {
			_, err := fmt.Fprintf(file, "line %d\n", i)
			require.NoError(t, err)
		}
		assert.Len(t, readLines(t, path), 5)

		_, err = file.Write([]byte("line 6\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"line 4", "line 5", "line 6"}, readLines(t, path))

		_, err = file.Write([]byte("line 7\nline 8\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"line 4", "line 5", "line 6", "line 7", "line 8"}, readLines(t, path))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("zero limit never compacts", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "main.log")

		file, err := logger.OpenTailFile(path, 0)
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })

		for i := range 10 {
			_, err := fmt.Fprintf(file, "line %d\n", i)
			require.NoError(t, err)
		}
		require.NoError(t, file.Sync())
		assert.Len(t, readLines(t, path), 10)
	})
}
