package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDecodeConfigs(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		sources []string
		wantErr bool
	}{
		{name: "mapping", input: "typePrefix: a\n", sources: []string{"f"}},
		{name: "json", input: `{"typePrefix": "a", "plugins": ["x"]}`, sources: []string{"f"}},
		{name: "list", input: "- typePrefix: a\n- typePrefix: b\n", sources: []string{"f#0", "f#1"}},
		{name: "multi document", input: "typePrefix: a\n---\ntypePrefix: b\n", sources: []string{"f@0", "f@1"}},
		{name: "empty", input: "", sources: nil},
		{name: "scalar", input: "42\n", wantErr: true},
		{name: "list of scalars", input: "- 1\n", wantErr: true},
		{name: "malformed", input: "a: [\n", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			configs, err := decodeConfigs("f", strings.NewReader(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var sources []string
			for _, c := range configs {
				sources = append(sources, c.Source)
			}
			assert.Equal(t, tc.sources, sources)
		})
	}
}

func TestIDCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "typePrefix: a\nplugins: [x]\n")
	b := writeFile(t, dir, "b.yaml", "typePrefix: b\n")

	stdout, _, err := execute(t, "id", a, b)
	require.NoError(t, err)
	assert.Equal(t, a+" 755371ea\n"+b+" a553a55a\n", stdout)
}

func TestIDCommand_Duplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "typePrefix: a\nplugins: [x]\n")
	b := writeFile(t, dir, "b.json", `{"plugins": [], "typePrefix": "a"}`)

	stdout, stderr, err := execute(t, "id", a, b)
	assert.ErrorIs(t, err, errDuplicates)
	assert.Equal(t, a+" 755371ea\n"+b+" 755371ea duplicate\n", stdout)
	assert.Contains(t, stderr, "E300")
}

func TestIDCommand_MissingFile(t *testing.T) {
	_, _, err := execute(t, "id", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCanonicalCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "typePrefix: a\nplugins: [x]\noptions:\n  z: 1\n  a: [1, 2, 3]\n")

	stdout, _, err := execute(t, "canonical", path)
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"a":[1,2,3],"z":1},"plugins":[],"typePrefix":"a"}`+"\n", stdout)

	stdout, _, err = execute(t, "canonical", "--raw", "--max-breadth", "2", path)
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"a":[1,2,"... 1 item not stringified"],"z":1},"plugins":["x"],"...":"1 item not stringified"}`+"\n", stdout)

	stdout, _, err = execute(t, "canonical", "--indent", "2", "--max-depth", "1", path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"options\": \"[Object]\",\n  \"plugins\": [],\n  \"typePrefix\": \"a\"\n}\n", stdout)
}

func TestCanonicalCommand_InvalidDepth(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "typePrefix: a\n")

	_, _, err := execute(t, "canonical", "--max-depth", "-1", path)
	assert.Error(t, err)
}

func TestForgetCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "ledger.yaml",
		"redis:\n  addr: "+mr.Addr()+"\nledger:\n  enabled: true\n  ttl: 1h\n  key_prefix: \"connector:instance:\"\n")
	path := writeFile(t, dir, "a.yaml", "typePrefix: a\n")

	stdout, _, err := execute(t, "--config", cfgPath, "id", path)
	require.NoError(t, err)
	assert.Equal(t, path+" 755371ea\n", stdout)
	assert.True(t, mr.Exists("connector:instance:755371ea"))

	stdout, _, err = execute(t, "--config", cfgPath, "forget", "755371ea")
	require.NoError(t, err)
	assert.Equal(t, "755371ea forgotten\n", stdout)
	assert.False(t, mr.Exists("connector:instance:755371ea"))
}

func TestForgetCommand_LedgerDisabled(t *testing.T) {
	_, stderr, err := execute(t, "forget", "755371ea")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger is disabled")
	assert.Contains(t, stderr, "E100")
}
