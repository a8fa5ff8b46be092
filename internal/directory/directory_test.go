package directory

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDirectoryJSON = `{
	"locations": [
		{
			"id": "LOC-001",
			"name": "Shinjuku Branch",
			"staff": [
				{"id": "STF-001", "name": "Tanaka"},
				{"id": "STF-002", "name": "Sato"}
			]
		},
		{
			"id": "LOC-002",
			"name": "Osaka Branch",
			"staff": [{"id": "STF-003", "name": "Suzuki"}]
		}
	]
}`

func writeDirectoryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestLoadValidDirectory(t *testing.T) {
	dir, err := Load(writeDirectoryFile(t, validDirectoryJSON), discardLogger())
	require.NoError(t, err)

	assert.True(t, dir.IsValidLocation("LOC-001"))
	assert.True(t, dir.IsValidLocation("LOC-002"))
	assert.False(t, dir.IsValidLocation("LOC-999"))

	assert.True(t, dir.IsValidStaffForLocation("LOC-001", "STF-001"))
	assert.False(t, dir.IsValidStaffForLocation("LOC-001", "STF-003"))
	assert.False(t, dir.IsValidStaffForLocation("LOC-999", "STF-001"))

	assert.Equal(t, []string{"LOC-001", "LOC-002"}, dir.LocationIDs())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), discardLogger())
	assert.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(writeDirectoryFile(t, `{"locations": [`), discardLogger())
	assert.Error(t, err)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing locations key", `{}`},
		{"location without id", `{"locations": [{"name": "X", "staff": []}]}`},
		{"staff without id", `{"locations": [{"id": "L1", "name": "X", "staff": [{"name": "Y"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeDirectoryFile(t, tt.doc), discardLogger())
			assert.Error(t, err)
		})
	}
}

func TestStaffNameFallsBackToID(t *testing.T) {
	dir, err := Load(writeDirectoryFile(t, validDirectoryJSON), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "Tanaka", dir.StaffName("LOC-001", "STF-001"))
	assert.Equal(t, "STF-999", dir.StaffName("LOC-001", "STF-999"))
	assert.Equal(t, "STF-001", dir.StaffName("LOC-999", "STF-001"))
}

func TestLookupsTrimWhitespace(t *testing.T) {
	dir, err := Load(writeDirectoryFile(t, validDirectoryJSON), discardLogger())
	require.NoError(t, err)

	assert.True(t, dir.IsValidLocation(" LOC-001 "))
	assert.True(t, dir.IsValidStaffForLocation("LOC-001", " STF-002 "))
}
