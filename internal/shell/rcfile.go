package shell

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// RCFilePath returns the startup file grip edits for shell under home.
func RCFilePath(shell ShellType, home string) string {
	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc")
	case ShellZsh:
		return filepath.Join(home, ".zshrc")
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "conf.d", "grip.fish")
	default:
		return filepath.Join(home, ".profile")
	}
}

var (
	posixLinePattern = regexp.MustCompile(`^export PATH="((?:[^"\\]|\\.)*):\$PATH"\s+` + managedMarker + `$`)
	fishLinePattern  = regexp.MustCompile(`^fish_add_path "((?:[^"\\]|\\.)*)"\s+` + managedMarker + `$`)
)

// pathLine renders the managed line that puts dir on PATH.
func pathLine(shell ShellType, dir string) string {
	if shell == ShellFish {
		return fmt.Sprintf(`fish_add_path "%s"  %s`, escapeDoubleQuoted(dir, `\"$`), managedMarker)
	}
	return fmt.Sprintf(`export PATH="%s:$PATH"  %s`, escapeDoubleQuoted(dir, "\\\"$`"), managedMarker)
}

// parseLine returns the directory of a managed line.
func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if m := posixLinePattern.FindStringSubmatch(line); m != nil {
		return unescape(m[1]), true
	}
	if m := fishLinePattern.FindStringSubmatch(line); m != nil {
		return unescape(m[1]), true
	}
	return "", false
}

func escapeDoubleQuoted(s, special string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// RCFileManager keeps PATH entries as managed lines in a shell rc file.
type RCFileManager struct {
	path  string
	shell ShellType
}

// NewRCFileManager edits path, writing lines in shell's syntax.
func NewRCFileManager(path string, shell ShellType) *RCFileManager {
	return &RCFileManager{path: path, shell: shell}
}

// Path returns the rc file location.
func (m *RCFileManager) Path() string {
	return m.path
}

// Entries returns the directories on grip-managed lines, in file order.
func (m *RCFileManager) Entries() ([]string, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}

	var dirs []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if dir, ok := parseLine(scanner.Text()); ok {
			dirs = append(dirs, dir)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &RCFileError{Path: m.path, Message: "failed to read file", Cause: err}
	}
	return dirs, nil
}

// AddToPath appends a managed line for dir unless the file already puts dir
// on PATH, either through a managed line or one the user wrote.
func (m *RCFileManager) AddToPath(dir string) (*Result, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if d, ok := parseLine(line); ok && d == dir {
			return &Result{Location: m.path}, nil
		}
		if exportsDir(line, dir) {
			return &Result{Location: m.path}, nil
		}
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(pathLine(m.shell, dir))
	buf.WriteByte('\n')

	if err := m.write(buf.Bytes()); err != nil {
		return nil, err
	}
	return &Result{Added: true, Location: m.path}, nil
}

// exportsDir reports whether a hand-written, uncommented line adds dir to
// PATH.
func exportsDir(line, dir string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	if !strings.Contains(line, "PATH") && !strings.HasPrefix(line, "fish_add_path") {
		return false
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ':' || r == '=' || r == '"' || r == '\'' || r == ' ' || r == '\t'
	})
	for _, f := range fields {
		if f == dir {
			return true
		}
	}
	return false
}

// RemoveFromPath deletes every managed line for dir. Lines grip did not
// write are left alone.
func (m *RCFileManager) RemoveFromPath(dir string) (*Result, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}

	var kept [][]byte
	removed := false
	for _, line := range bytes.SplitAfter(content, []byte("\n")) {
		if d, ok := parseLine(string(line)); ok && d == dir {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return &Result{Location: m.path}, nil
	}

	if err := m.write(bytes.Join(kept, nil)); err != nil {
		return nil, err
	}
	return &Result{Removed: true, Location: m.path}, nil
}

// target resolves a symlinked rc file so the link itself survives the
// atomic replace.
func (m *RCFileManager) target() string {
	if resolved, err := filepath.EvalSymlinks(m.path); err == nil {
		return resolved
	}
	return m.path
}

func (m *RCFileManager) read() ([]byte, error) {
	content, err := os.ReadFile(m.target())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &RCFileError{Path: m.path, Message: "failed to read file", Cause: err}
	}
	return content, nil
}

// write replaces the rc file atomically, keeping its permissions.
func (m *RCFileManager) write(content []byte) error {
	path := m.target()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RCFileError{Path: m.path, Message: "failed to create parent directory", Cause: err}
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		if !info.Mode().IsRegular() {
			return &RCFileError{Path: m.path, Message: "not a regular file"}
		}
		mode = info.Mode().Perm()
	}

	tmpFile, err := os.CreateTemp(dir, ".grip-tmp-*")
	if err != nil {
		return &RCFileError{Path: m.path, Message: "failed to create temporary file", Cause: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: m.path, Message: "failed to write file", Cause: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: m.path, Message: "failed to sync file", Cause: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &RCFileError{Path: m.path, Message: "failed to close file", Cause: err}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return &RCFileError{Path: m.path, Message: "failed to set permissions", Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &RCFileError{Path: m.path, Message: "failed to rename temp file", Cause: err}
	}
	return nil
}
