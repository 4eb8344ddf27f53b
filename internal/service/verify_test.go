package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func sha256Line(body []byte, name string) []byte {
	sum := sha256.Sum256(body)
	return []byte(hex.EncodeToString(sum[:]) + "  " + name + "\n")
}

func TestInstallVerifiesChecksum(t *testing.T) {
	f := newFixture(t, "")
	archive := tarGz(t, map[string]string{"foo": "x"})
	f.addFoo(map[string][]byte{
		"foo.tar.gz":    archive,
		"checksums.txt": sha256Line(archive, "foo.tar.gz"),
	}, "foo.tar.gz", "checksums.txt")

	res, err := f.in.Install(context.Background(), InstallRequest{Package: "foo", Version: "1.2.0", Asset: "foo.tar.gz"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.Checksum != "checksums.txt" {
		t.Errorf("Checksum = %q, want checksums.txt", res.Checksum)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	assertNotExist(t, filepath.Join(res.InstallPath, "checksums.txt"))
}

func TestInstallChecksumMismatchLeavesNoTrace(t *testing.T) {
	f := newFixture(t, "")
	archive := tarGz(t, map[string]string{"foo": "x"})
	f.addFoo(map[string][]byte{
		"foo.tar.gz":        archive,
		"foo.tar.gz.sha256": sha256Line([]byte("something else"), "foo.tar.gz"),
	}, "foo.tar.gz", "foo.tar.gz.sha256")

	_, err := f.in.Install(context.Background(), InstallRequest{Package: "foo", Version: "1.2.0", Asset: "foo.tar.gz"})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("error = %v, want ErrChecksumMismatch", err)
	}
	assertNotExist(t, filepath.Join(f.dataDir, "packages", "foo"))
	if len(f.paths.entries) != 0 {
		t.Errorf("PATH mutated: %v", f.paths.entries)
	}
}

func TestInstallSkipChecksum(t *testing.T) {
	f := newFixture(t, "")
	archive := tarGz(t, map[string]string{"foo": "x"})
	f.addFoo(map[string][]byte{
		"foo.tar.gz":        archive,
		"foo.tar.gz.sha256": sha256Line([]byte("something else"), "foo.tar.gz"),
	}, "foo.tar.gz", "foo.tar.gz.sha256")

	res, err := f.in.Install(context.Background(), InstallRequest{Package: "foo", Version: "1.2.0", Asset: "foo.tar.gz", SkipChecksum: true})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.Checksum != "" {
		t.Errorf("Checksum = %q, want empty", res.Checksum)
	}
	if len(f.resolver.downloads) != 1 {
		t.Errorf("downloads = %v, want only the asset", f.resolver.downloads)
	}
}

func TestInstallChecksumNotListedWarns(t *testing.T) {
	f := newFixture(t, "")
	archive := tarGz(t, map[string]string{"foo": "x"})
	f.addFoo(map[string][]byte{
		"foo.tar.gz":    archive,
		"checksums.txt": sha256Line(archive, "bar.tar.gz"),
	}, "foo.tar.gz", "checksums.txt")

	res, err := f.in.Install(context.Background(), InstallRequest{Package: "foo", Version: "1.2.0", Asset: "foo.tar.gz"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.Checksum != "" {
		t.Errorf("Checksum = %q, want empty", res.Checksum)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "unverified") {
		t.Errorf("Warnings = %v, want one unverified warning", res.Warnings)
	}
}
