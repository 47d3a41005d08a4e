package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanDirProbesManifestNamesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "twin", "plugin.yml", "name: from-yml\n")
	writeManifest(t, dir, "twin", "plugin.json", `{"name": "from-json"}`)

	found, errs, err := scanDir(dir)
	if err != nil || len(errs) != 0 {
		t.Fatalf("scan: err=%v errs=%v", err, errs)
	}
	if len(found) != 1 || found[0].manifest.Name != "from-yml" {
		t.Fatalf("found = %+v, want the yml manifest to win", found)
	}
}

func TestScanDirIgnoresFilesAndBareDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeManifest(t, dir, "real", "plugin.yaml", "name: real\ndependencies:\n  - other\n")

	found, errs, err := scanDir(dir)
	if err != nil || len(errs) != 0 {
		t.Fatalf("scan: err=%v errs=%v", err, errs)
	}
	if len(found) != 1 || found[0].manifest.Name != "real" {
		t.Fatalf("found = %+v, want only the real plugin", found)
	}
	if len(found[0].manifest.Dependencies) != 1 || found[0].manifest.Dependencies[0] != "other" {
		t.Fatalf("dependencies = %v", found[0].manifest.Dependencies)
	}
}

func TestScanDirReportsBrokenManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "bad", "plugin.json", `{"name": `)
	writeManifest(t, dir, "ok", "plugin.json", `{"name": "ok", "version": "1.0.0", "author": "someone"}`)

	found, errs, err := scanDir(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want the broken manifest reported", errs)
	}
	if len(found) != 1 || found[0].manifest.Author != "someone" {
		t.Fatalf("found = %+v", found)
	}
}

func TestScanDirMissingDirectory(t *testing.T) {
	if _, _, err := scanDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
