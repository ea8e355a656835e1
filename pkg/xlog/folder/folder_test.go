package folder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fixed(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func TestResolveUserDir(t *testing.T) {
	base := t.TempDir()
	r := &Resolver{UserDir: fixed(base)}

	dir, err := r.Resolve("com.example.app", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := filepath.Join(base, "com.example.app", "Logs")
	if dir != want {
		t.Errorf("Resolve() = %s, want %s", dir, want)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("folder was not created: %v", err)
	}

	// 幂等
	again, err := r.Resolve("com.example.app", "")
	if err != nil || again != dir {
		t.Errorf("second Resolve() = %s, %v", again, err)
	}
}

func TestResolveGroup(t *testing.T) {
	root := t.TempDir()
	group := "group.com.example.shared"
	if err := os.Mkdir(filepath.Join(root, group), 0o755); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{GroupRoot: fixed(root)}

	dir, err := r.Resolve("com.example.app", group)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := filepath.Join(root, group, "Library", "Logs", "com.example.app")
	if dir != want {
		t.Errorf("Resolve() = %s, want %s", dir, want)
	}
}

func TestResolveErrors(t *testing.T) {
	root := t.TempDir()
	notDir := filepath.Join(root, "group.file")
	os.WriteFile(notDir, nil, 0o644)

	tests := []struct {
		name  string
		r     *Resolver
		app   string
		group string
	}{
		{name: "empty app", r: &Resolver{UserDir: fixed(root)}, app: ""},
		{name: "app with separator", r: &Resolver{UserDir: fixed(root)}, app: "../escape"},
		{name: "dot dot group", r: &Resolver{GroupRoot: fixed(root)}, app: "app", group: ".."},
		{name: "missing group container", r: &Resolver{GroupRoot: fixed(root)}, app: "app", group: "group.missing"},
		{name: "group container is a file", r: &Resolver{GroupRoot: fixed(root)}, app: "app", group: "group.file"},
		{name: "user dir lookup fails", r: &Resolver{UserDir: func() (string, error) { return "", errors.New("no home") }}, app: "app"},
		{name: "mkdir fails", r: &Resolver{UserDir: fixed(notDir)}, app: "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Resolve(tt.app, tt.group)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("Resolve() error = %v, want ErrUnavailable", err)
			}
		})
	}
}
