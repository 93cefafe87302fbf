package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-cli/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "record", "supplier", "dashboard", "admin-summary", "rescore", "export", "import", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "esg-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRecordCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range recordCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"patch", "get", "submit", "review", "override", "delete", "list"} {
		assert.True(t, names[name], "record should have subcommand %q", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRecordListCommand_Flags(t *testing.T) {
	flag := recordListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestResolveFormat(t *testing.T) {
	f, err := resolveFormat("", "")
	require.NoError(t, err)
	assert.Equal(t, "json", string(f))

	f, err = resolveFormat("", "dump.yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", string(f))

	f, err = resolveFormat("xlsx", "dump.json")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(f))

	_, err = resolveFormat("", "dump")
	assert.Error(t, err)
}

// resetFlags clears flag values left over from earlier Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func setupCLI(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ESG_STORE_DRIVER", "sqlite")
	t.Setenv("ESG_STORE_SQLITE_PATH", filepath.Join(dir, "esg.db"))
	t.Setenv("ESG_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_RecordWorkflow(t *testing.T) {
	setupCLI(t)
	owner := []string{"--user", "user-1", "--company", "acme"}

	out, err := execute(t, append([]string{"record", "patch", "--category", "environment",
		"--subsection", "renewableEnergy", "--data", `{"value": "50", "certificate": "cert.pdf"}`}, owner...)...)
	require.NoError(t, err)
	var rec model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 4.0, rec.OverallScore.Environment)

	patchFile := filepath.Join(t.TempDir(), "water.yaml")
	require.NoError(t, os.WriteFile(patchFile, []byte("targets: reduce 10% by 2027\n"), 0o644))
	_, err = execute(t, append([]string{"record", "patch", "--category", "environment",
		"--subsection", "waterConsumption", "--file", patchFile}, owner...)...)
	require.NoError(t, err)

	out, err = execute(t, append([]string{"record", "get"}, owner...)...)
	require.NoError(t, err)
	var got model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Contains(t, got.Environment, "waterConsumption")
	assert.Contains(t, got.Environment, "renewableEnergy")

	out, err = execute(t, append([]string{"record", "submit"}, owner...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "submitted")

	out, err = execute(t, "record", "list", "--status", "submitted")
	require.NoError(t, err)
	assert.Contains(t, out, rec.ID)

	out, err = execute(t, "record", "review", rec.ID, "--status", "approved", "--comments", "fine")
	require.NoError(t, err)
	assert.Contains(t, out, "approved")

	_, err = execute(t, "record", "review", rec.ID, "--status", "draft")
	assert.Error(t, err)

	out, err = execute(t, "record", "override", rec.ID, "--category", "environment",
		"--subsection", "renewableEnergy", "--points", "10")
	require.NoError(t, err)
	assert.Contains(t, out, `"environment"`)

	out, err = execute(t, "admin-summary")
	require.NoError(t, err)
	assert.Contains(t, out, `"totalRecords": 1`)

	_, err = execute(t, append([]string{"dashboard"}, owner...)...)
	require.NoError(t, err)

	out, err = execute(t, "rescore", "--recompute")
	require.NoError(t, err)
	assert.Contains(t, out, "Rescored 1 records (0 failed)")

	dump := filepath.Join(t.TempDir(), "dump.json")
	_, err = execute(t, "export", "-o", dump)
	require.NoError(t, err)

	_, err = execute(t, "record", "delete", rec.ID)
	require.NoError(t, err)
	_, err = execute(t, "record", "get", rec.ID)
	assert.Error(t, err)

	out, err = execute(t, "import", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 records")

	out, err = execute(t, "record", "get", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, rec.ID)
}

func TestCLI_PatchNeedsData(t *testing.T) {
	setupCLI(t)
	_, err := execute(t, "record", "patch", "--category", "environment", "--subsection", "renewableEnergy",
		"--user", "u", "--company", "c")
	assert.Error(t, err)
}

func TestCLI_Supplier(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "supplier", "scores", "user-7", "--environmental", "80", "--social", "60")
	require.NoError(t, err)
	var scores model.ESGScores
	require.NoError(t, json.Unmarshal([]byte(out), &scores))
	assert.Equal(t, 80.0, scores.Environmental)
	assert.Equal(t, 35.0, scores.Overall)

	_, err = execute(t, "supplier", "details", "user-7", "--company-name", "Widgets", "--industry", "steel")
	require.NoError(t, err)

	_, err = execute(t, "supplier", "form", "user-7", "--form", "quality")
	require.NoError(t, err)

	out, err = execute(t, "supplier", "get", "user-7")
	require.NoError(t, err)
	var p model.SupplierProfile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Widgets", p.CompanyName)
	assert.Equal(t, 60.0, p.ESGScores.Social)
	assert.True(t, p.FormSubmissions[model.CategoryQuality].Submitted)

	out, err = execute(t, "supplier", "list", "--industry", "steel")
	require.NoError(t, err)
	assert.Contains(t, out, "Widgets")
}

func TestCLI_InvalidConfig(t *testing.T) {
	setupCLI(t)
	t.Setenv("ESG_STORE_DRIVER", "oracle")
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}
