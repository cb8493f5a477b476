package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "badger")
	t.Setenv("SKYMOCK_STORAGE_PATH", storePath)

	tests := []struct {
		name           string
		stdin          string
		args           []string
		expectedOutput string
		wantErr        bool
	}{
		{
			name:           "version command",
			args:           []string{"version"},
			expectedOutput: "skymock version 1.0.0",
		},
		{
			name:           "help",
			args:           []string{"--help"},
			expectedOutput: "Available Commands:",
		},
		{
			name:           "render from stdin",
			stdin:          `{"postType":"reply","displayName":"Jane","content":"<hi>"}`,
			args:           []string{"render"},
			expectedOutput: "&lt;hi&gt;",
		},
		{
			name:    "render invalid post",
			stdin:   `{"likes":-1}`,
			args:    []string{"render"},
			wantErr: true,
		},
		{
			name:           "fetch needs a target",
			args:           []string{"fetch"},
			expectedOutput: "at least one of the flags in the group [handle url] is required",
			wantErr:        true,
		},
		{
			name:           "store init",
			args:           []string{"store", "init"},
			expectedOutput: "Database initialized successfully",
		},
		{
			name:           "store backup",
			args:           []string{"store", "backup"},
			expectedOutput: "Database backed up successfully",
		},
		{
			name:           "store clean cancelled",
			stdin:          "n\n",
			args:           []string{"store", "clean"},
			expectedOutput: "Operation cancelled",
		},
		{
			name:           "store clean forced",
			args:           []string{"store", "clean", "--yes"},
			expectedOutput: "Database cleaned successfully",
		},
		{
			name:    "store restore needs a file",
			args:    []string{"store", "restore"},
			wantErr: true,
		},
		{
			name:    "unknown command",
			args:    []string{"bake"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := runCLI(t, tt.stdin, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestCLIExport(t *testing.T) {
	outDir := t.TempDir()
	output, err := runCLI(t, `{"displayName":"Jane Doe","content":"export me"}`, "export", "--theme", "dark", "--size", "small", "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, output, "Image exported to "+filepath.Join(outDir, "bluesky_post_jane_doe_"))

	matches, err := filepath.Glob(filepath.Join(outDir, "*.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
