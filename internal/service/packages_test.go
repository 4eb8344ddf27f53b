package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
)

func TestListSortedByName(t *testing.T) {
	f := newFixture(t, "")
	state := ledger.New()
	state.Add("zed", ledger.InstalledPackage{Version: "1.0", InstallPath: "/z"})
	state.Add("alpha", ledger.InstalledPackage{Version: "2.0", InstallPath: "/a"})
	if err := state.Save(f.dataDir); err != nil {
		t.Fatal(err)
	}

	entries, err := f.in.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"alpha", "zed"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t, "")
	entries, err := f.in.List(context.Background())
	if err != nil || len(entries) != 0 {
		t.Errorf("List() = %v, %v; want empty", entries, err)
	}
}

func TestUninstall(t *testing.T) {
	f := newFixture(t, "")
	f.addFoo(map[string][]byte{"foo.tar.gz": tarGz(t, map[string]string{"foo": "x"})}, "foo.tar.gz")
	ctx := context.Background()

	if _, err := f.in.Install(ctx, InstallRequest{Package: "foo", Version: "1.2.0", Asset: "foo.tar.gz"}); err != nil {
		t.Fatal(err)
	}

	res, err := f.in.Uninstall(ctx, "foo")
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if res.Version != "1.2.0" || res.Path == nil || !res.Path.Removed {
		t.Errorf("result = %+v", res)
	}

	assertNotExist(t, filepath.Join(f.dataDir, "packages", "foo"))
	if len(f.paths.entries) != 0 {
		t.Errorf("PATH entries left: %v", f.paths.entries)
	}
	state, _ := ledger.Load(f.dataDir)
	if _, ok := state.Get("foo"); ok {
		t.Error("ledger entry survived uninstall")
	}

	if _, err := f.in.Uninstall(ctx, "foo"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("second Uninstall error = %v, want ErrNotInstalled", err)
	}
}

func TestUninstallLeavesForeignPathsAlone(t *testing.T) {
	f := newFixture(t, "")
	outside := t.TempDir()
	keep := filepath.Join(outside, "keep")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	state := ledger.New()
	state.Add("foo", ledger.InstalledPackage{Version: "1.0", InstallPath: outside})
	if err := state.Save(f.dataDir); err != nil {
		t.Fatal(err)
	}

	if _, err := f.in.Uninstall(context.Background(), "foo"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("file outside the data directory was removed: %v", err)
	}
}

func TestInit(t *testing.T) {
	f := newFixture(t, "")
	dir := t.TempDir()

	path, err := f.in.Init(InitRequest{Dir: dir})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if path != filepath.Join(dir, ManifestFileName) {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Manifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	want := Manifest{Name: "grip-project", Version: "0.1.0", Dependencies: map[string]string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	f := newFixture(t, "")
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, []byte(`{"name":"mine"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := f.in.Init(InitRequest{Dir: dir}); !errors.Is(err, ErrManifestExists) {
		t.Fatalf("error = %v, want ErrManifestExists", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `{"name":"mine"}` {
		t.Error("existing manifest was modified")
	}

	if _, err := f.in.Init(InitRequest{Dir: dir, Name: "demo", Force: true}); err != nil {
		t.Fatalf("Init with force: %v", err)
	}
	data, _ = os.ReadFile(path)
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil || m.Name != "demo" {
		t.Errorf("forced manifest = %s (%v)", data, err)
	}
}
