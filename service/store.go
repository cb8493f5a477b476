package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skymock/app/repositories"
)

var (
	ErrNoDatabase = errors.New("no database exists")
	ErrCancelled  = errors.New("operation cancelled")
)

// Store manages the badger directory holding preferences and cached
// avatars: creating, wiping, backing up and restoring it.
type Store struct {
	Path      string
	BackupDir string

	// Yes skips the confirmation prompts.
	Yes bool
	In  io.Reader
	Out io.Writer
	Now func() time.Time
}

// NewStore creates a Store for the database at path.
func NewStore(path string, in io.Reader, out io.Writer) *Store {
	return &Store{
		Path:      path,
		BackupDir: filepath.Join(filepath.Dir(path), "backups"),
		In:        in,
		Out:       out,
		Now:       time.Now,
	}
}

func (s *Store) exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

func (s *Store) confirm(prompt string) bool {
	if s.Yes {
		return true
	}
	fmt.Fprintf(s.Out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(s.In).ReadString('\n')
	response := strings.TrimSpace(line)
	return response == "y" || response == "Y"
}

// Init creates a new empty database.
func (s *Store) Init() error {
	if s.exists() {
		fmt.Fprintln(s.Out, "Database already exists. Use 'clean' first if you want to reinitialize.")
		return nil
	}

	db, err := repositories.Open(s.Path, false)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	fmt.Fprintln(s.Out, "Database initialized successfully")
	return nil
}

// Clean removes the database.
func (s *Store) Clean() error {
	if !s.exists() {
		fmt.Fprintln(s.Out, "Database is already clean (does not exist)")
		return nil
	}

	if !s.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(s.Out, "Operation cancelled")
		return ErrCancelled
	}

	if err := os.RemoveAll(s.Path); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(s.Out, "Database cleaned successfully")
	return nil
}

// Backup writes a full backup of the database into BackupDir and returns
// the file it created.
func (s *Store) Backup() (string, error) {
	if !s.exists() {
		fmt.Fprintln(s.Out, "No database exists to backup")
		return "", ErrNoDatabase
	}

	if err := os.MkdirAll(s.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := repositories.Open(s.Path, false)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	backupFile := filepath.Join(s.BackupDir, fmt.Sprintf("backup_%d.db", s.Now().Unix()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}

	fmt.Fprintf(s.Out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// Restore replaces the database with the contents of backupFile.
func (s *Store) Restore(backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if s.exists() {
		if !s.confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(s.Out, "Operation cancelled")
			return ErrCancelled
		}
		if err := os.RemoveAll(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	db, err := repositories.Open(s.Path, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := db.Load(f, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}

	fmt.Fprintln(s.Out, "Database restored successfully")
	return nil
}
