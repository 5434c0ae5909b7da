package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath, queryJSON, queryVariables, queryOperation, schemaRaw = "", false, "", "", false
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "cli.db") + "\njwt:\n  secret: cli-secret\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "type Bucket")
	assert.Contains(t, out, "messageSent(")

	out, err = run(t, "", "schema", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "schema {")
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "", "validate", `{ getUserByUsername(username: "a") { id } }`)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = run(t, `{ getUserByUsername(username: "a") { nope } }`, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = run(t, "   ", "validate")
	assert.Error(t, err)
}

func TestQueryCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "", "query", "--config", path, "--json",
		`mutation { registerUser(input: { username: "cli", password: "pw" }) { username } }`)
	require.NoError(t, err)

	var data struct {
		RegisterUser struct{ Username string } `json:"registerUser"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "cli", data.RegisterUser.Username)

	out, err = run(t, "", "query", "--config", path, "--json",
		"-v", `{"u": "cli"}`, `query($u: String) { getUserByUsername(username: $u) { username } }`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"getUserByUsername":{"username":"cli"}}`, out)

	_, err = run(t, "", "query", "--config", path,
		`mutation { registerUser(input: { username: "cli", password: "pw" }) { username } }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "", "query", "--config", path, `subscription { messageSent(author: "x") { id } }`)
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	out, err := run(t, "", "migrate", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, "", "query", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "{ getChats(userId: \"x\") { id } }")
	assert.Error(t, err)
}
