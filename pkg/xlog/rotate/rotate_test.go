package rotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	w, err := New(Config{Dir: dir, Name: "test"})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(w.Active()); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
	if filepath.Dir(w.Active()) != dir {
		t.Errorf("Active file %s not in %s", w.Active(), dir)
	}
	if !strings.HasPrefix(filepath.Base(w.Active()), "test-") || !strings.HasSuffix(w.Active(), ".log") {
		t.Errorf("Unexpected file name %s", w.Active())
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() should fail without dir")
	}
}

func TestWrite(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	message := "test log message\n"
	n, err := w.Write([]byte(message))
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if n != len(message) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(message), n)
	}

	content, err := os.ReadFile(w.Active())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if string(content) != message {
		t.Errorf("Expected content %q, got %q", message, string(content))
	}
}

func TestConcurrentWrite(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			message := fmt.Sprintf("test message %d %s\n", i, strings.Repeat("x", 200))
			for j := 0; j < 100; j++ {
				w.Write([]byte(message))
			}
		})
	}
	wg.Wait()

	content, err := os.ReadFile(w.Active())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	if len(lines) != 1000 {
		t.Fatalf("Expected 1000 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "test message ") || !strings.HasSuffix(line, strings.Repeat("x", 200)) {
			t.Fatalf("Garbled line %q", line)
		}
	}
}

func TestRotationByAge(t *testing.T) {
	clock := newFakeClock()
	w, err := New(Config{Dir: t.TempDir(), MaxAge: time.Hour}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	first := w.Active()
	w.Write([]byte("one\n"))

	clock.Advance(59 * time.Minute)
	w.Write([]byte("two\n"))
	if w.Active() != first {
		t.Fatal("Rotated before MaxAge elapsed")
	}

	clock.Advance(time.Minute)
	w.Write([]byte("three\n"))
	second := w.Active()
	if second == first {
		t.Fatal("Expected rotation after MaxAge")
	}

	// 同一周期内的继续写入不应再次轮转
	clock.Advance(30 * time.Minute)
	w.Write([]byte("four\n"))
	if w.Active() != second {
		t.Error("Rotated more than once within one interval")
	}

	old, _ := os.ReadFile(first)
	if string(old) != "one\ntwo\n" {
		t.Errorf("Unexpected content in first file: %q", string(old))
	}
	cur, _ := os.ReadFile(second)
	if string(cur) != "three\nfour\n" {
		t.Errorf("Unexpected content in second file: %q", string(cur))
	}
}

func TestRetention(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, MaxFiles: 3, MaxAge: time.Hour}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	var actives []string
	for i := 0; i < 6; i++ {
		w.Write([]byte(fmt.Sprintf("period %d\n", i)))
		actives = append(actives, w.Active())

		files, err := w.Files()
		if err != nil {
			t.Fatalf("Files() error: %v", err)
		}
		if len(files) > 3 {
			t.Fatalf("Retained %d files, max is 3", len(files))
		}
		clock.Advance(time.Hour)
	}

	files, _ := w.Files()
	want := actives[3:]
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %d", len(want), len(files))
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
	for _, gone := range actives[:3] {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("Old file %s should have been deleted", gone)
		}
	}
}

func TestRestartAppends(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()

	w, err := New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	w.Write([]byte("before restart\n"))
	path := w.Active()
	w.Close()

	clock.Advance(10 * time.Minute)
	w, err = New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to reopen writer: %v", err)
	}
	defer w.Close()
	w.Write([]byte("after restart\n"))

	if w.Active() != path {
		t.Fatalf("Expected to reuse %s, got %s", path, w.Active())
	}
	content, _ := os.ReadFile(path)
	want := "before restart\n" + RestartMarker + "\nafter restart\n"
	if string(content) != want {
		t.Errorf("Expected content %q, got %q", want, string(content))
	}
}

func TestRestartAfterTornLine(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()

	w, err := New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	w.Write([]byte("before crash\n"))
	path := w.Active()
	w.Close()

	// 进程在写一行的中途退出
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	f.WriteString("torn")
	f.Close()

	clock.Advance(time.Minute)
	w, err = New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to reopen writer: %v", err)
	}
	defer w.Close()
	w.Write([]byte("after restart\n"))

	content, _ := os.ReadFile(path)
	want := "before crash\ntorn\n" + RestartMarker + "\nafter restart\n"
	if string(content) != want {
		t.Errorf("Expected content %q, got %q", want, string(content))
	}
}

func TestNewDirUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{Dir: file})
	if !errors.Is(err, ErrDir) {
		t.Errorf("New() error = %v, want ErrDir", err)
	}
}

func TestRestartAfterPeriodCreatesNewFile(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()

	w, err := New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	w.Write([]byte("old data\n"))
	old := w.Active()
	w.Close()

	clock.Advance(2 * time.Hour)
	w, err = New(Config{Dir: dir}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to reopen writer: %v", err)
	}
	defer w.Close()

	if w.Active() == old {
		t.Fatal("Expired file should not be reused")
	}
	content, _ := os.ReadFile(old)
	if strings.Contains(string(content), RestartMarker) {
		t.Error("Expired file should not receive a restart marker")
	}
}

func TestRotationBySize(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir(), MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	first := w.Active()
	chunk := []byte(strings.Repeat("a", 512*1024-1) + "\n")
	w.Write(chunk)
	w.Write(chunk)
	if w.Active() != first {
		t.Fatal("Rotated before reaching MaxSizeMB")
	}
	w.Write(chunk)
	if w.Active() == first {
		t.Error("Expected rotation after exceeding MaxSizeMB")
	}
}

func TestRotateIfDue(t *testing.T) {
	clock := newFakeClock()
	w, err := New(Config{Dir: t.TempDir()}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	rotated, err := w.RotateIfDue()
	if err != nil || rotated {
		t.Fatalf("RotateIfDue() = %v, %v; want false, nil", rotated, err)
	}

	var got string
	clock.Advance(time.Hour)
	w.onRotate = func(active string) { got = active }
	rotated, err = w.RotateIfDue()
	if err != nil || !rotated {
		t.Fatalf("RotateIfDue() = %v, %v; want true, nil", rotated, err)
	}
	if got != w.Active() {
		t.Errorf("onRotate got %q, want %q", got, w.Active())
	}
}

func TestRotateSameMillisecond(t *testing.T) {
	clock := newFakeClock()
	w, err := New(Config{Dir: t.TempDir()}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	first := w.Active()
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate() error: %v", err)
	}
	if w.Active() == first {
		t.Error("Rotate() within the same millisecond must pick a new name")
	}
}

func TestIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	foreign := filepath.Join(dir, "notes.txt")
	os.WriteFile(foreign, []byte("keep me"), 0o644)
	os.WriteFile(filepath.Join(dir, "app-garbage.log"), []byte("keep me"), 0o644)

	w, err := New(Config{Dir: dir, MaxFiles: 1})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()
	w.Rotate()

	if _, err := os.Stat(foreign); err != nil {
		t.Error("Foreign file should not be touched")
	}
	files, _ := w.Files()
	if len(files) != 1 {
		t.Errorf("Expected 1 managed file, got %d", len(files))
	}
}

func TestClose(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if _, err := w.Write([]byte("x")); err != ErrClosed {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if err := w.Rotate(); err != ErrClosed {
		t.Errorf("Rotate after Close = %v, want ErrClosed", err)
	}
}

func TestMustNewPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustNew() should panic with empty dir")
		}
	}()

	MustNew(Config{})
}
