package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"xdg", "/tmp/xdg-cache", filepath.Join("/tmp/xdg-cache", appName)},
		{"home fallback", "", filepath.Join(home, ".cache", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			got, err := cacheDir()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "scenes/fade.toml", "scenes/fade"},
		{"", "spin.yaml", "spin"},
		{"out/graph.svg", "fade.toml", "out/graph"},
		{"out/graph", "fade.toml", "out/graph"},
		{"out/graph.v2", "fade.toml", "out/graph.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := map[string][]byte{"dot": []byte("digraph G {}"), "json": []byte("{}")}

	paths, err := writeArtifacts(artifacts, []string{"dot", "json"}, "fade.toml", filepath.Join(dir, "fade"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "fade.dot"), filepath.Join(dir, "fade.json")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}

	single := filepath.Join(dir, "graph.gv")
	paths, err = writeArtifacts(artifacts, []string{"dot"}, "fade.toml", single)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != single {
		t.Errorf("single format paths = %v, want [%s]", paths, single)
	}
}
