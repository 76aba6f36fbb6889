package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestEnsureConfigPresent(t *testing.T) {
	fsys := fstest.MapFS{"example.yaml": {Data: []byte("a: 1\n")}}
	dst := filepath.Join(t.TempDir(), "sub", "conf.yaml")

	created, err := EnsureConfigPresent(dst, fsys, "example.yaml")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	if err := os.WriteFile(dst, []byte("mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = EnsureConfigPresent(dst, fsys, "example.yaml")
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "mine\n" {
		t.Errorf("existing file overwritten: %q", b)
	}
}

func TestExportDefaults(t *testing.T) {
	fsys := fstest.MapFS{
		"popup/index.html":   {Data: []byte("<html>")},
		"popup/js/popup.js":  {Data: []byte("js")},
		"other/ignored.yaml": {Data: []byte("x")},
	}
	dir := t.TempDir()

	results, err := ExportDefaults(fsys, "popup", dir, false)
	if err != nil {
		t.Fatalf("ExportDefaults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.Status != StatusWritten {
			t.Errorf("%s: status %q", r.Source, r.Status)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "js", "popup.js")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}

	// fichier modifié localement
	index := filepath.Join(dir, "index.html")
	if err := os.WriteFile(index, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	results, err = ExportDefaults(fsys, "popup", dir, false)
	if err != nil {
		t.Fatalf("ExportDefaults: %v", err)
	}
	got := map[string]ExportStatus{}
	for _, r := range results {
		got[r.Source] = r.Status
	}
	if got["popup/index.html"] != StatusSkipped || got["popup/js/popup.js"] != StatusUnchanged {
		t.Errorf("statuses = %v", got)
	}

	results, err = ExportDefaults(fsys, "popup", dir, true)
	if err != nil {
		t.Fatalf("ExportDefaults force: %v", err)
	}
	for _, r := range results {
		if r.Source == "popup/index.html" {
			if r.Status != StatusOverwritten || r.Backup == "" {
				t.Errorf("forced result = %+v", r)
			}
		}
	}
	if b, _ := os.ReadFile(index); string(b) != "<html>" {
		t.Errorf("index not overwritten: %q", b)
	}
}
