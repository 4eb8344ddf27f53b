package download

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
)

// ErrNoChecksum is returned by VerifySHA256 when the checksum file has no
// entry for the file.
var ErrNoChecksum = errors.New("checksum not listed")

// sharedChecksumFiles are release-wide checksum files, matched without case.
var sharedChecksumFiles = []string{
	"checksums.txt",
	"sha256sums",
	"sha256sums.txt",
	"checksums.sha256",
}

// FindChecksumAsset picks the checksum file for asset among a release's
// asset names. A per-asset "<asset>.sha256" wins over a shared file.
func FindChecksumAsset(asset string, names []string) (string, bool) {
	for _, suffix := range []string{".sha256", ".sha256sum"} {
		for _, n := range names {
			if n == asset+suffix {
				return n, true
			}
		}
	}
	for _, n := range names {
		lower := strings.ToLower(n)
		for _, shared := range sharedChecksumFiles {
			if lower == shared || strings.HasSuffix(lower, "_"+shared) {
				return n, true
			}
		}
	}
	return "", false
}

// VerifySHA256 checks filePath against the entry for filename in
// checksumPath. The checksum file is either "<hex>  <name>" lines or a
// single bare hex digest.
func VerifySHA256(filePath, checksumPath, filename string) error {
	expected, err := findChecksum(checksumPath, filename)
	if err != nil {
		return err
	}
	actual, err := calculateSHA256(filePath)
	if err != nil {
		return errs.Filesystem("read", filePath, err)
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w for %s:\nactual:   %s\nexpected: %s", errs.ErrChecksumMismatch, filename, actual, expected)
	}
	return nil
}

func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for filename.
// Format: "abc123def456  filename.tar.gz", optionally "*filename" for
// binary mode.
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", errs.Filesystem("open", checksumPath, err)
	}
	defer file.Close()

	var bare []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		switch {
		case len(parts) == 1 && isSHA256(parts[0]):
			bare = append(bare, parts[0])
		case len(parts) >= 2:
			name := strings.TrimPrefix(parts[1], "*")
			if name == filename || filepath.Base(name) == filename {
				return parts[0], nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errs.Filesystem("read", checksumPath, err)
	}
	if len(bare) == 1 {
		return bare[0], nil
	}
	return "", fmt.Errorf("%w for %s in %s", ErrNoChecksum, filename, filepath.Base(checksumPath))
}

func isSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
