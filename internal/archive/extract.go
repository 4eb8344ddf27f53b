package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
)

// ExtractTarGz extracts a .tar.gz archive to a destination directory
func ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return errs.Filesystem("open", archivePath, err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return &errs.ArchiveError{Path: archivePath, Message: "invalid gzip stream", Cause: err}
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errs.Filesystem("mkdir", destDir, err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &errs.ArchiveError{Path: archivePath, Message: "read tar header", Cause: err}
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return &errs.ArchiveError{Path: archivePath, Message: "illegal file path", Cause: err}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errs.Filesystem("mkdir", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(target, tarReader, header.FileInfo().Mode().Perm()); err != nil {
				if isCorrupt(err) {
					return &errs.ArchiveError{Path: archivePath, Message: "corrupt entry " + header.Name, Cause: err}
				}
				return err
			}

		case tar.TypeSymlink:
			if err := makeSymlink(destDir, target, header.Linkname); err != nil {
				return &errs.ArchiveError{Path: archivePath, Message: "symlink " + header.Name, Cause: err}
			}

		default:
			// Hard links, devices and fifos have no place in a release asset.
			continue
		}
	}

	return nil
}

// ExtractZip extracts a .zip archive to a destination directory
func ExtractZip(archivePath, destDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return errs.Filesystem("open", archivePath, err)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return &errs.ArchiveError{Path: archivePath, Message: "invalid zip file", Cause: err}
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errs.Filesystem("mkdir", destDir, err)
	}

	for _, f := range reader.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return &errs.ArchiveError{Path: archivePath, Message: "illegal file path", Cause: err}
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return errs.Filesystem("mkdir", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return &errs.ArchiveError{Path: archivePath, Message: "read entry " + f.Name, Cause: err}
			}
			if err := makeSymlink(destDir, target, linkname); err != nil {
				return &errs.ArchiveError{Path: archivePath, Message: "symlink " + f.Name, Cause: err}
			}

		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return &errs.ArchiveError{Path: archivePath, Message: "open entry " + f.Name, Cause: err}
			}
			perm := mode.Perm()
			if perm == 0 {
				// Archives written on Windows carry no unix mode bits.
				perm = 0644
			}
			err = writeFile(target, rc, perm)
			rc.Close()
			if err != nil {
				if isCorrupt(err) {
					return &errs.ArchiveError{Path: archivePath, Message: "corrupt entry " + f.Name, Cause: err}
				}
				return err
			}
		}
	}

	return nil
}

// safeJoin joins name onto destDir, rejecting entries that escape it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s escapes destination", name)
	}
	return target, nil
}

// copyError marks failures while reading archive content, as opposed to
// failures writing to disk.
type copyError struct{ err error }

func (e *copyError) Error() string { return e.err.Error() }
func (e *copyError) Unwrap() error { return e.err }

func isCorrupt(err error) bool {
	var ce *copyError
	return errors.As(err, &ce)
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errs.Filesystem("mkdir", filepath.Dir(target), err)
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errs.Filesystem("create", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return &copyError{err: err}
	}

	if err := outFile.Close(); err != nil {
		return errs.Filesystem("close", target, err)
	}

	// OpenFile honours the umask; restore the archived bits.
	if err := os.Chmod(target, perm); err != nil {
		return errs.Filesystem("chmod", target, err)
	}
	return nil
}

func makeSymlink(destDir, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	if _, err := safeJoin(destDir, mustRel(destDir, resolved)); err != nil || filepath.IsAbs(linkname) {
		return fmt.Errorf("link target %s escapes destination", linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	os.Remove(target)
	return os.Symlink(linkname, target)
}

func mustRel(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
