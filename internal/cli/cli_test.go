package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/cache"
)

const pulseScene = `
name = "pulse"
frames = 8

[props]
native = ["scale"]

[[nodes]]
id = 1
kind = "value"
params = { value = 1 }

[[nodes]]
id = 2
kind = "op"
params = { op = "multiply", input = [1, 1] }

[[nodes]]
id = 3
kind = "props"
params = { props = { scale = 2 } }

[[views]]
node = 3
view = 4

[[script]]
frame = 3
op = "setValue"
node = 1
value = 3
`

func writeScene(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(redisEnv, "")

	var logs bytes.Buffer
	c := New(&logs, log.DebugLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&logs)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return logs.String(), err
}

func TestRunCommand(t *testing.T) {
	scene := writeScene(t, "pulse.toml", pulseScene)
	out := filepath.Join(t.TempDir(), "result.json")

	logs, err := execute(t, "run", scene, "-o", out)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, logs)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"scene": "pulse"`, `"scale": 1`, `"scale": 9`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("result missing %q:\n%s", want, data)
		}
	}
	if !strings.Contains(logs, "Played 8 frames of pulse") {
		t.Errorf("logs missing progress line:\n%s", logs)
	}
}

func TestValidateCommand(t *testing.T) {
	good := writeScene(t, "pulse.toml", pulseScene)
	bad := writeScene(t, "bad.yaml", "name: bad\nnodes:\n  - {id: 1, kind: spring}\n")

	if _, err := execute(t, "validate", good); err != nil {
		t.Errorf("validate good scene: %v", err)
	}
	_, err := execute(t, "validate", good, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("validate with bad scene = %v, want 1 of 2 invalid", err)
	}
}

func TestGraphCommand(t *testing.T) {
	scene := writeScene(t, "pulse.toml", pulseScene)
	base := filepath.Join(t.TempDir(), "pulse")

	if logs, err := execute(t, "graph", scene, "-f", "dot,json", "-o", base, "--frame", "4", "--values"); err != nil {
		t.Fatalf("graph: %v\n%s", err, logs)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "n2 -> n3") || !strings.Contains(string(dot), "n3 -> v4") {
		t.Errorf("unexpected DOT:\n%s", dot)
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json artifact: %v", err)
	}

	if _, err := execute(t, "graph", scene, "-f", "gif"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewCacheBackends(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c := New(&bytes.Buffer{}, log.InfoLevel)
	ctx := context.Background()

	got, err := c.newCache(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(cache.NullCache); !ok {
		t.Errorf("--no-cache backend = %T, want NullCache", got)
	}

	got, err = c.newCache(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*cache.FileCache); !ok {
		t.Errorf("default backend = %T, want *FileCache", got)
	}

	c.redisURL = "http://not-redis"
	if _, err := c.newCache(ctx, false); err == nil {
		t.Error("expected error for a non-redis URL")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"dot", []string{"dot"}},
		{"svg,png,json", []string{"svg", "png", "json"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseFormats(tt.in)); diff != "" {
			t.Errorf("parseFormats(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell)
		if err != nil {
			t.Errorf("completion %s: %v", shell, err)
			continue
		}
		if !strings.Contains(out, "kinetic") {
			t.Errorf("completion %s does not mention the command name", shell)
		}
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for an unsupported shell")
	}
}

func TestCompleteScenes(t *testing.T) {
	exts, directive := completeScenes(nil, nil, "")
	if diff := cmp.Diff([]string{"toml", "yaml", "yml"}, exts); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
	if directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("directive = %v", directive)
	}
}
