package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"hashesdb/internal/hdb"
)

// ErrMockRead is returned by reads of files added with AddUnreadableFile.
var ErrMockRead = errors.New("mock read failure")

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	Ctime       time.Time
	IsDirectory bool
	// ReadErr fails reads after the content has been returned.
	ReadErr error
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Directories are implicit parents of added files; AddDirectory creates empty ones.
type MockFilesystemManager struct {
	mu    sync.RWMutex
	files map[string]*MockFile
	now   time.Time
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile adds a file to the mock filesystem along with its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.add(path, &MockFile{Content: content, Permissions: 0644})
}

// AddUnreadableFile adds a file whose reads fail with ErrMockRead.
func (m *MockFilesystemManager) AddUnreadableFile(path string, content []byte) {
	m.add(path, &MockFile{Content: content, Permissions: 0644, ReadErr: ErrMockRead})
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirLocked(filepath.Clean(path))
}

// Remove deletes a path from the mock filesystem.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
}

func (m *MockFilesystemManager) add(path string, f *MockFile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	f.ModTime = m.now
	f.Ctime = m.now
	m.files[path] = f
	m.addDirLocked(filepath.Dir(path))
}

func (m *MockFilesystemManager) addDirLocked(path string) {
	for {
		if _, ok := m.files[path]; !ok {
			m.files[path] = &MockFile{Permissions: 0755, ModTime: m.now, Ctime: m.now, IsDirectory: true}
		}
		parent := filepath.Dir(path)
		if parent == path {
			return
		}
		path = parent
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*hdb.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	file, ok := m.files[absPath]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	return hdb.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *hdb.Path) (io.ReadCloser, error) {
	m.mu.RLock()
	file, ok := m.files[path.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}

	var r io.Reader = bytes.NewReader(file.Content)
	if file.ReadErr != nil {
		r = io.MultiReader(r, &failingReader{err: file.ReadErr})
	}
	return io.NopCloser(r), nil
}

func (m *MockFilesystemManager) Stat(path *hdb.Path) (fs.FileInfo, error) {
	m.mu.RLock()
	file, ok := m.files[path.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return newMockFileInfo(path.String(), file), nil
}

// FindFiles returns the files below path in lexical order.
func (m *MockFilesystemManager) FindFiles(path *hdb.Path, recursive bool) ([]*hdb.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := path.String() + string(filepath.Separator)
	var names []string
	for name, f := range m.files {
		if f.IsDirectory || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !recursive && filepath.Dir(name) != path.String() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]*hdb.Path, 0, len(names))
	for _, name := range names {
		paths = append(paths, hdb.NewPath(name, false, newMockFileInfo(name, m.files[name])))
	}
	return paths, nil
}

func (m *MockFilesystemManager) ChangeTime(info fs.FileInfo) time.Time {
	if f, ok := info.Sys().(*MockFile); ok {
		return f.Ctime
	}
	return info.ModTime()
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	mockFile *MockFile
}

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{name: filepath.Base(path), mockFile: f}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return int64(len(m.mockFile.Content)) }
func (m *mockFileInfo) ModTime() time.Time { return m.mockFile.ModTime }
func (m *mockFileInfo) IsDir() bool        { return m.mockFile.IsDirectory }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

func (m *mockFileInfo) Mode() fs.FileMode {
	if m.mockFile.IsDirectory {
		return fs.ModeDir | m.mockFile.Permissions
	}
	return m.mockFile.Permissions
}

// Compile-time check
var _ hdb.FilesystemManager = (*MockFilesystemManager)(nil)
