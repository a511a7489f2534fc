package serviceconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dbusgen/dbusgen/serviceconfig"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
service_name: org.example.Foo
object_manager:
  name: FooObjectManager
  object_path: /org/example/Foo/Manager
package_name: foogen
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := serviceconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &serviceconfig.Config{
		ServiceName: "org.example.Foo",
		ObjectManager: serviceconfig.ObjectManagerConfig{
			Name:       "FooObjectManager",
			ObjectPath: "/org/example/Foo/Manager",
		},
		PackageName: "foogen",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := serviceconfig.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should return an error")
	}
}

func TestLoadDefaultsToEmptyObjectManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("service_name: org.example.Bar\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := serviceconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ObjectManager.Name != "" {
		t.Errorf("ObjectManager.Name = %q, want empty", got.ObjectManager.Name)
	}
}
