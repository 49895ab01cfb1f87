package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// MockFileSystem is a mock implementation of the FileSystem interface.
type MockFileSystem struct {
	StatFunc     func(name string) (os.FileInfo, error)
	ReadFileFunc func(name string) ([]byte, error)
	ReadDirFunc  func(name string) ([]os.DirEntry, error)
}

func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if m.StatFunc != nil {
		return m.StatFunc(name)
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(name)
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if m.ReadDirFunc != nil {
		return m.ReadDirFunc(name)
	}
	return nil, nil
}

// mockFileInfo implements os.FileInfo
type mockFileInfo struct {
	name  string
	isDir bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return 0 }
func (m mockFileInfo) Mode() os.FileMode  { return 0 }
func (m mockFileInfo) ModTime() time.Time { return time.Now() }
func (m mockFileInfo) IsDir() bool        { return m.isDir }
func (m mockFileInfo) Sys() any           { return nil }

type mockDirEntry struct {
	name  string
	isDir bool
}

func (m mockDirEntry) Name() string               { return m.name }
func (m mockDirEntry) IsDir() bool                { return m.isDir }
func (m mockDirEntry) Type() os.FileMode          { return 0 }
func (m mockDirEntry) Info() (os.FileInfo, error) { return mockFileInfo(m), nil }

func TestReadFile(t *testing.T) {
	long := strings.Repeat("a", MaxFileChars+500)

	tests := []struct {
		name        string
		path        string
		mockContent string
		mockErr     error
		want        string
	}{
		{
			name:        "Read existing file",
			path:        "test.txt",
			mockContent: "hello world",
			want:        "hello world",
		},
		{
			name:    "Read non-existent file",
			path:    "missing.py",
			mockErr: os.ErrNotExist,
			want:    "Error: File not found: missing.py",
		},
		{
			name:    "Other read error",
			path:    "locked.txt",
			mockErr: os.ErrPermission,
			want:    "Error reading file: permission denied",
		},
		{
			name: "Path traversal attempt",
			path: "../secret.txt",
			want: "Error reading file: path ../secret.txt is outside repository root",
		},
		{
			name:        "Exactly at the limit",
			path:        "edge.txt",
			mockContent: long[:MaxFileChars],
			want:        long[:MaxFileChars],
		},
		{
			name:        "Over the limit",
			path:        "big.txt",
			mockContent: long,
			want:        long[:MaxFileChars] + "\n... (truncated)",
		},
		{
			name:        "Invalid UTF-8",
			path:        "bin.dat",
			mockContent: string([]byte{0xff, 0xfe, 0x00}),
			want:        "Error reading file: bin.dat is not valid UTF-8 text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &MockFileSystem{
				ReadFileFunc: func(name string) ([]byte, error) {
					if tt.mockErr != nil {
						return nil, tt.mockErr
					}
					return []byte(tt.mockContent), nil
				},
			}

			got := ReadFile(fs, "/repo", tt.path)
			if got != tt.want {
				t.Errorf("ReadFile() = %.80q, want %.80q", got, tt.want)
			}
		})
	}
}

func TestReadFileJoinsRepoRoot(t *testing.T) {
	var requested string
	fs := &MockFileSystem{
		ReadFileFunc: func(name string) ([]byte, error) {
			requested = name
			return []byte("x"), nil
		},
	}
	ReadFile(fs, "/repo", "pkg/a.go")
	if requested != filepath.Join("/repo", "pkg", "a.go") {
		t.Errorf("ReadFile() opened %q", requested)
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	content := strings.Repeat("가", MaxFileChars+1)
	got := Truncate(content)

	body := strings.TrimSuffix(got, TruncationMarker)
	if body == got {
		t.Fatal("Truncate() did not append the marker")
	}
	if n := utf8.RuneCountInString(body); n != MaxFileChars {
		t.Errorf("Truncate() kept %d characters, want %d", n, MaxFileChars)
	}
	if !utf8.ValidString(body) {
		t.Error("Truncate() split a multi-byte character")
	}

	short := strings.Repeat("가", MaxFileChars)
	if Truncate(short) != short {
		t.Error("Truncate() modified content at the limit")
	}
}

func TestListFiles(t *testing.T) {
	many := make([]os.DirEntry, 0, 60)
	for i := 0; i < 60; i++ {
		many = append(many, mockDirEntry{name: "f" + string(rune('A'+i%26)) + strings.Repeat("x", i/26)})
	}

	tests := []struct {
		name      string
		directory string
		entries   []os.DirEntry
		readErr   error
		gitignore string
		wantLines int
		want      string
	}{
		{
			name:      "Lists sorted entries and skips .git",
			directory: ".",
			entries: []os.DirEntry{
				mockDirEntry{name: "main.go"},
				mockDirEntry{name: ".git", isDir: true},
				mockDirEntry{name: "README.md"},
			},
			want: "README.md\nmain.go",
		},
		{
			name:      "Respects .gitignore",
			directory: "",
			entries: []os.DirEntry{
				mockDirEntry{name: "build", isDir: true},
				mockDirEntry{name: "app.log"},
				mockDirEntry{name: "main.go"},
			},
			gitignore: "build/\n*.log\n",
			want:      "main.go",
		},
		{
			name:      "Caps at fifty entries",
			directory: ".",
			entries:   many,
			wantLines: MaxListEntries,
		},
		{
			name:      "Directory error",
			directory: "nope",
			readErr:   errors.New("open /repo/nope: no such file or directory"),
			want:      "Error listing directory: open /repo/nope: no such file or directory",
		},
		{
			name:      "Path traversal attempt",
			directory: "../..",
			want:      "Error listing directory: path ../.. is outside repository root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &MockFileSystem{
				ReadDirFunc: func(name string) ([]os.DirEntry, error) {
					return tt.entries, tt.readErr
				},
				ReadFileFunc: func(name string) ([]byte, error) {
					if tt.gitignore == "" {
						return nil, os.ErrNotExist
					}
					return []byte(tt.gitignore), nil
				},
			}

			got := ListFiles(fs, "/repo", tt.directory)
			if tt.wantLines > 0 {
				if n := len(strings.Split(got, "\n")); n != tt.wantLines {
					t.Errorf("ListFiles() returned %d lines, want %d", n, tt.wantLines)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ListFiles() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolsThroughOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("print('a')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	read := NewReadFileTool(NewOSFileSystem())
	got, err := read.Fn(context.Background(), dir, map[string]any{"path": "a.py"})
	if err != nil || got != "print('a')\n" {
		t.Errorf("read_file = %q, %v", got, err)
	}

	list := NewListFilesTool(NewOSFileSystem())
	got, err = list.Fn(context.Background(), dir, map[string]any{})
	if err != nil || got != "a.py" {
		t.Errorf("list_files = %q, %v", got, err)
	}
}

func TestSymlinkEscapeIsRejected(t *testing.T) {
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("TOP SECRET"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := t.TempDir()
	if err := os.WriteFile(filepath.Join(repo, "a.py"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(repo, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(repo, "a.py"), filepath.Join(repo, "alias.py")); err != nil {
		t.Fatal(err)
	}
	fsys := NewOSFileSystem()

	for _, path := range []string{"link/secret.txt", "link/missing.txt"} {
		got := ReadFile(fsys, repo, path)
		if !strings.Contains(got, "outside repository root") {
			t.Errorf("ReadFile(%q) = %q, want refusal", path, got)
		}
	}
	if got := ListFiles(fsys, repo, "link"); !strings.Contains(got, "outside repository root") {
		t.Errorf("ListFiles(link) = %q, want refusal", got)
	}

	if got := ReadFile(fsys, repo, "alias.py"); got != "a" {
		t.Errorf("ReadFile(alias.py) = %q, want in-repo symlink followed", got)
	}
	if got := ReadFile(fsys, repo, "gone.py"); got != "Error: File not found: gone.py" {
		t.Errorf("ReadFile(gone.py) = %q", got)
	}
}
