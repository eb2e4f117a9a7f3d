package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const orderV1 = `syntax = "proto3";

package shop;

message Order {
  string id = 1;
  int32 amount = 2;
  bool flag = 3;
}
`

const orderV2 = `syntax = "proto3";

package shop;

message Order {
  string id = 1;
  int64 amount = 2;
  string flag = 3;
  repeated string tags = 4;
}
`

// writeVersion writes one version's sources into a fresh directory below root
func writeVersion(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return dir
}

// orderVersions creates v1 and v2 of shop/order.proto and returns their directories
func orderVersions(t *testing.T) (root, v1, v2 string) {
	t.Helper()
	root = t.TempDir()
	v1 = writeVersion(t, root, "v1", map[string]string{"shop/order.proto": orderV1})
	v2 = writeVersion(t, root, "v2", map[string]string{"shop/order.proto": orderV2})
	return root, v1, v2
}

// execute runs the command tree with args and captures its output
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("PROTOMERGE_LOG_LEVEL", "error")

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
