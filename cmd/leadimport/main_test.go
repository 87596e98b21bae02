package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { jsonOutput = false })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTemplateThenPreview(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leads.csv")

	_, err := execute(t, "template", "--format", "csv", "--out", path)
	require.NoError(t, err)

	snapshot := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(`[{"id":"lead-1","name":"Someone","email":"jane@techco.com"}]`), 0o644))

	out, err := execute(t, "preview", path, "--org", "org-1", "--existing", snapshot, "--json")
	require.NoError(t, err)

	var result models.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.TotalRows)
	assert.Len(t, result.ValidLeads, 3)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "lead-1", result.Duplicates[0].ExistingLeadID)
	assert.Equal(t, "org-1", result.ValidLeads[0].OrganizationID)
}

func TestTemplate_UnsupportedFormat(t *testing.T) {
	_, err := execute(t, "template", "--format", "pdf", "--out", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	existing, err := loadSnapshot("")
	assert.NoError(t, err)
	assert.Nil(t, existing)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = loadSnapshot(bad)
	assert.Error(t, err)
}

func TestRenderReport(t *testing.T) {
	result := &models.ImportResult{
		Success:   true,
		TotalRows: 3,
		ValidLeads: []models.CandidateLead{
			{Name: "John", OrganizationID: "org-1"},
		},
		Errors: []models.ImportError{{Row: 3, Field: "email", Message: "Invalid email format"}},
		Duplicates: []models.DuplicateInfo{{
			Row:            4,
			Lead:           models.CandidateLead{Name: "Jane"},
			DuplicateType:  models.DuplicateExternal,
			MatchedFields:  []string{"email"},
			ExistingLeadID: "lead-9",
		}},
	}

	var buf bytes.Buffer
	renderReport(&buf, "leads.xlsx", result)
	out := buf.String()

	assert.Contains(t, out, "IMPORT PREVIEW")
	assert.Contains(t, out, "row 3 [email]: Invalid email format")
	assert.Contains(t, out, "row 4 Jane")
	assert.Contains(t, out, "matched on email with lead lead-9")
	assert.True(t, strings.Contains(out, "ready to commit"))
}

func TestParseMigrateArgs(t *testing.T) {
	tests := []struct {
		args        []string
		wantAction  string
		wantVersion uint
		wantErr     bool
	}{
		{[]string{"up"}, "up", 0, false},
		{[]string{"down"}, "down", 0, false},
		{[]string{"to", "2"}, "to", 2, false},
		{[]string{"to"}, "", 0, true},
		{[]string{"to", "-1"}, "", 0, true},
		{[]string{"down", "3"}, "", 0, true},
		{[]string{"sideways"}, "", 0, true},
	}

	for _, tt := range tests {
		action, version, err := parseMigrateArgs(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.wantAction, action)
		assert.Equal(t, tt.wantVersion, version)
	}
}

func TestMigrate_RejectsBadArgsBeforeConnecting(t *testing.T) {
	_, err := execute(t, "migrate", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migrate action")
}
