// Package folder resolves and creates the directory that holds an
// application's log files.
package folder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when the log folder cannot be located or created.
// Logging has no destination without it, so callers treat it as fatal.
var ErrUnavailable = errors.New("log folder unavailable")

// Resolver locates log folders. The zero value uses the platform defaults.
type Resolver struct {
	// UserDir returns the per-user application data directory
	// (Application Support on macOS, XDG config on Linux, AppData on Windows).
	UserDir func() (string, error)

	// GroupRoot returns the directory that holds shared group containers.
	GroupRoot func() (string, error)
}

// Resolve resolves the log folder with the default Resolver.
func Resolve(app, group string) (string, error) {
	var r Resolver
	return r.Resolve(app, group)
}

// Resolve returns the log folder for app, creating it if needed.
//
// Without a group the folder is <UserDir>/<app>/Logs. With a group it is
// <GroupRoot>/<group>/Library/Logs/<app>, and the group container itself must
// already exist since it is provisioned by the platform, not by us.
func (r *Resolver) Resolve(app, group string) (string, error) {
	if err := validName(app); err != nil {
		return "", fmt.Errorf("%w: app identity: %w", ErrUnavailable, err)
	}

	var dir string
	if group == "" {
		base, err := r.userDir()
		if err != nil {
			return "", fmt.Errorf("%w: user directory: %w", ErrUnavailable, err)
		}
		dir = filepath.Join(base, app, "Logs")
	} else {
		if err := validName(group); err != nil {
			return "", fmt.Errorf("%w: group id: %w", ErrUnavailable, err)
		}
		root, err := r.groupRoot()
		if err != nil {
			return "", fmt.Errorf("%w: group containers: %w", ErrUnavailable, err)
		}
		container := filepath.Join(root, group)
		info, err := os.Stat(container)
		if err != nil {
			return "", fmt.Errorf("%w: group container %s: %w", ErrUnavailable, container, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%w: group container %s is not a directory", ErrUnavailable, container)
		}
		dir = filepath.Join(container, "Library", "Logs", app)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrUnavailable, dir, err)
	}
	return dir, nil
}

func (r *Resolver) userDir() (string, error) {
	if r.UserDir != nil {
		return r.UserDir()
	}
	return os.UserConfigDir()
}

func (r *Resolver) groupRoot() (string, error) {
	if r.GroupRoot != nil {
		return r.GroupRoot()
	}
	return defaultGroupRoot()
}

func defaultGroupRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Group Containers"), nil
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, "group-containers"), nil
	}
	return filepath.Join(home, ".local", "share", "group-containers"), nil
}

// validName rejects identifiers that would escape their parent directory.
func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("invalid character in %q", name)
	}
	return nil
}
