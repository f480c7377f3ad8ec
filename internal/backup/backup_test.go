package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teddyful/teddy-upgrader/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func makeInstall(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"version": "1.2.0"}`)
	writeFile(t, filepath.Join(root, "config", "site.json"), "{}")
	writeFile(t, filepath.Join(root, "sites", "travelbook", "pages", "index.md"), "# hi")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "module.exports = 1")
	writeFile(t, filepath.Join(root, "themes", "bear", "node_modules", "x.js"), "x")
	return root
}

var startedAt = time.Date(2026, 10, 19, 8, 30, 15, 0, time.UTC)

func TestManager_Create(t *testing.T) {
	src := makeInstall(t)
	backupDir := t.TempDir()

	old := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(src, "config", "site.json"), old, old); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(backupDir, "node_modules").WithLogger(logging.Discard())
	snap, err := manager.Create(src, startedAt)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snap.ID != "20261019083015" {
		t.Errorf("Create() ID = %s, want 20261019083015", snap.ID)
	}
	if snap.Path != filepath.Join(backupDir, "20261019083015") {
		t.Errorf("Create() Path = %s", snap.Path)
	}
	if !snap.CreatedAt.Equal(startedAt) {
		t.Errorf("Create() CreatedAt = %v, want %v", snap.CreatedAt, startedAt)
	}
	if snap.Files != 3 {
		t.Errorf("Create() Files = %d, want 3", snap.Files)
	}
	if snap.Skipped != 2 {
		t.Errorf("Create() Skipped = %d, want 2", snap.Skipped)
	}

	for _, p := range []string{"package.json", "config/site.json", "sites/travelbook/pages/index.md"} {
		if _, err := os.Stat(filepath.Join(snap.Path, p)); err != nil {
			t.Errorf("backup missing %s: %v", p, err)
		}
	}
	for _, p := range []string{"node_modules", "themes/bear/node_modules"} {
		if _, err := os.Stat(filepath.Join(snap.Path, p)); !os.IsNotExist(err) {
			t.Errorf("backup contains excluded %s", p)
		}
	}

	info, err := os.Stat(filepath.Join(snap.Path, "config", "site.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("backup mtime = %v, want %v", info.ModTime(), old)
	}
}

func TestManager_CreateInsideSource(t *testing.T) {
	src := makeInstall(t)
	backupRoot := filepath.Join(src, "working", "backups")

	manager := NewManager(backupRoot, "node_modules").
		WithLogger(logging.Discard()).
		WithSkipPaths(filepath.Join(src, "working"))
	snap, err := manager.Create(src, startedAt)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(snap.Path, "working")); !os.IsNotExist(err) {
		t.Error("backup recursed into its own directory")
	}
}

func TestManager_NoExclusion(t *testing.T) {
	src := makeInstall(t)
	manager := NewManager(t.TempDir(), "").WithLogger(logging.Discard())
	snap, err := manager.Create(src, startedAt)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(snap.Path, "node_modules", "dep", "index.js")); err != nil {
		t.Errorf("node_modules should be copied without an exclusion: %v", err)
	}
}

func TestManager_ListAndGet(t *testing.T) {
	src := makeInstall(t)
	backupDir := t.TempDir()
	manager := NewManager(backupDir, "node_modules").WithLogger(logging.Discard())

	for i := 0; i < 3; i++ {
		if _, err := manager.Create(src, startedAt.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	// Unrelated entries are ignored.
	writeFile(t, filepath.Join(backupDir, "notes.txt"), "x")
	if err := os.MkdirAll(filepath.Join(backupDir, "scratch"), 0755); err != nil {
		t.Fatal(err)
	}

	backups, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() count = %d, want 3", len(backups))
	}
	if backups[0].ID != "20261019083215" {
		t.Errorf("List()[0] = %s, want newest first", backups[0].ID)
	}
	if backups[0].Version != "1.2.0" {
		t.Errorf("List()[0].Version = %q, want 1.2.0", backups[0].Version)
	}
	if backups[0].Size == 0 {
		t.Error("List()[0].Size = 0")
	}

	latest, err := manager.Get("latest")
	if err != nil {
		t.Fatalf("Get(latest) error = %v", err)
	}
	if latest.ID != backups[0].ID {
		t.Errorf("Get(latest) = %s, want %s", latest.ID, backups[0].ID)
	}

	if _, err := manager.Get("20261019083015"); err != nil {
		t.Errorf("Get(id) error = %v", err)
	}
	if _, err := manager.Get("20000101000000"); err == nil {
		t.Error("Get() expected error for unknown id")
	}
}

func TestManager_ListMissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "none"), "")
	backups, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("List() = %v, want empty", backups)
	}
	if _, err := manager.Get("latest"); err == nil {
		t.Error("Get(latest) expected error with no backups")
	}
}

func TestManager_Delete(t *testing.T) {
	src := makeInstall(t)
	manager := NewManager(t.TempDir(), "node_modules").WithLogger(logging.Discard())
	snap, err := manager.Create(src, startedAt)
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.Delete(snap.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(snap.Path); !os.IsNotExist(err) {
		t.Error("Delete() left the backup directory")
	}
	if err := manager.Delete(snap.ID); err == nil {
		t.Error("Delete() expected error for missing backup")
	}
	if err := manager.Delete("../../etc"); err == nil {
		t.Error("Delete() expected error for invalid id")
	}
}
