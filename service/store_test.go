package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skymock/app/models"
	"skymock/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, input string) (*Store, *bytes.Buffer) {
	t.Helper()
	tmpDir := t.TempDir()
	var out bytes.Buffer
	s := NewStore(filepath.Join(tmpDir, "badger"), strings.NewReader(input), &out)
	s.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, &out
}

func seedTheme(t *testing.T, path, session string, theme models.Theme) {
	t.Helper()
	db, err := repositories.Open(path, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, repositories.NewBadgerPreferenceRepository(db).SetTheme(session, theme))
}

func readTheme(t *testing.T, path, session string) (models.Theme, error) {
	t.Helper()
	db, err := repositories.Open(path, false)
	require.NoError(t, err)
	defer db.Close()
	return repositories.NewBadgerPreferenceRepository(db).GetTheme(session)
}

func TestStoreInit(t *testing.T) {
	s, out := setupTestStore(t, "")

	t.Run("initialize new database", func(t *testing.T) {
		require.NoError(t, s.Init())
		assert.Contains(t, out.String(), "Database initialized successfully")
		assert.DirExists(t, s.Path)
	})

	t.Run("initialize existing database", func(t *testing.T) {
		out.Reset()
		require.NoError(t, s.Init())
		assert.Contains(t, out.String(), "Database already exists")
	})
}

func TestStoreClean(t *testing.T) {
	tests := []struct {
		name           string
		create         bool
		input          string
		yes            bool
		expectedOutput string
		expectedErr    error
		remains        bool
	}{
		{"clean non-existent database", false, "", false, "Database is already clean", nil, false},
		{"clean existing database - confirmed", true, "y\n", false, "Database cleaned successfully", nil, false},
		{"clean existing database - cancelled", true, "n\n", false, "Operation cancelled", ErrCancelled, true},
		{"clean existing database - forced", true, "", true, "Database cleaned successfully", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := setupTestStore(t, tt.input)
			s.Yes = tt.yes
			if tt.create {
				require.NoError(t, s.Init())
			}

			err := s.Clean()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.expectedOutput)
			if tt.remains {
				assert.DirExists(t, s.Path)
			} else {
				assert.NoDirExists(t, s.Path)
			}
		})
	}
}

func TestStoreBackupAndRestore(t *testing.T) {
	s, out := setupTestStore(t, "y\n")

	_, err := s.Backup()
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.Contains(t, out.String(), "No database exists to backup")

	seedTheme(t, s.Path, "session-1", models.ThemeDark)

	backupFile, err := s.Backup()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BackupDir, "backup_1700000000.db"), backupFile)
	assert.FileExists(t, backupFile)

	// Change the live data, then roll it back.
	seedTheme(t, s.Path, "session-1", models.ThemeLight)
	require.NoError(t, s.Restore(backupFile))
	assert.Contains(t, out.String(), "Database restored successfully")

	theme, err := readTheme(t, s.Path, "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, theme)
}

func TestStoreRestoreErrors(t *testing.T) {
	t.Run("missing backup", func(t *testing.T) {
		s, _ := setupTestStore(t, "")
		err := s.Restore(filepath.Join(t.TempDir(), "nonexistent.db"))
		assert.ErrorContains(t, err, "backup file does not exist")
	})

	t.Run("empty backup", func(t *testing.T) {
		s, _ := setupTestStore(t, "")
		empty := filepath.Join(t.TempDir(), "empty.db")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		assert.ErrorContains(t, s.Restore(empty), "backup file is empty")
	})

	t.Run("existing database - cancelled", func(t *testing.T) {
		s, out := setupTestStore(t, "n\n")
		seedTheme(t, s.Path, "session-1", models.ThemeDark)
		backupFile, err := s.Backup()
		require.NoError(t, err)

		assert.ErrorIs(t, s.Restore(backupFile), ErrCancelled)
		assert.Contains(t, out.String(), "Operation cancelled")
		assert.DirExists(t, s.Path)
	})
}
