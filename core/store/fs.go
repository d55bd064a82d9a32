package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
)

type NoSuchDirectoryError struct {
	msg string
}

func newNoSuchDirectoryError(msg string) *NoSuchDirectoryError {
	return &NoSuchDirectoryError{msg}
}

func (err *NoSuchDirectoryError) Error() string {
	return err.msg
}

// store/FSDirectory.java

// Default write buffer of an FSDirectory output.
const CHUNK_SIZE = 8192

/*
Directory implementation storing index files in a file system
directory. Inputs are memory-mapped read-only; outputs are buffered
writes to freshly created files.
*/
type FSDirectory struct {
	*DirectoryImpl
	sync.Locker
	path           string
	isOpen         bool
	staleFiles     map[string]bool // synchronized, files written, but not yet sync'ed
	staleFilesLock *sync.RWMutex
}

// Opens (and creates, if missing) an FSDirectory rooted at path.
func OpenFSDirectory(path string) (d *FSDirectory, err error) {
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return nil, newNoSuchDirectoryError(fmt.Sprintf("file '%v' exists but is not a directory", path))
	}
	if err = os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create directory %v", path)
	}
	d = &FSDirectory{
		Locker:         &sync.Mutex{},
		path:           path,
		isOpen:         true,
		staleFiles:     make(map[string]bool),
		staleFilesLock: &sync.RWMutex{},
	}
	d.DirectoryImpl = NewDirectoryImpl(d)
	return d, nil
}

func (d *FSDirectory) Path() string {
	return d.path
}

func (d *FSDirectory) ensureOpen() error {
	d.Lock()
	defer d.Unlock()
	if !d.isOpen {
		return ErrAlreadyClosed
	}
	return nil
}

func FSDirectoryListAll(path string) (paths []string, err error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil, newNoSuchDirectoryError(fmt.Sprintf("directory '%v' does not exist", path))
	} else if err != nil {
		return nil, err
	}
	// Exclude subdirs
	for _, entry := range entries {
		if !entry.IsDir() {
			paths = append(paths, entry.Name())
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *FSDirectory) ListAll() (paths []string, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	return FSDirectoryListAll(d.path)
}

func (d *FSDirectory) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

// Returns the length in bytes of a file in the directory.
func (d *FSDirectory) FileLength(name string) (n int64, err error) {
	if err = d.ensureOpen(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(filepath.Join(d.path, name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Removes an existing file in the directory.
func (d *FSDirectory) DeleteFile(name string) (err error) {
	if err = d.ensureOpen(); err != nil {
		return err
	}
	if err = os.Remove(filepath.Join(d.path, name)); err == nil {
		d.staleFilesLock.Lock()
		defer d.staleFilesLock.Unlock()
		delete(d.staleFiles, name)
	}
	return
}

/*
Creates an IndexOutput for the file with the given name. An existing
file of the same name is overwritten.
*/
func (d *FSDirectory) CreateOutput(name string, ctx IOContext) (out IndexOutput, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	if err = d.ensureCanWrite(name); err != nil {
		return nil, err
	}
	return newFSIndexOutput(d, name)
}

func (d *FSDirectory) ensureCanWrite(name string) error {
	filename := filepath.Join(d.path, name)
	if _, err := os.Stat(filename); err == nil {
		if err = os.Remove(filename); err != nil {
			return errors.Wrapf(err, "cannot overwrite %v/%v", d.path, name)
		}
	}
	return nil
}

/*
Called on closing an open IndexOuput, reporting the name of the file
that was closed. FSDirectory needs this information to take care of
syncing stale files.
*/
func (d *FSDirectory) onIndexOutputClosed(name string) {
	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	d.staleFiles[name] = true
}

func (d *FSDirectory) Sync(names []string) (err error) {
	if err = d.ensureOpen(); err != nil {
		return err
	}

	toSync := make([]string, 0, len(names))
	d.staleFilesLock.RLock()
	for _, name := range names {
		if d.staleFiles[name] {
			toSync = append(toSync, name)
		}
	}
	d.staleFilesLock.RUnlock()

	for _, name := range toSync {
		if err = fsync(filepath.Join(d.path, name)); err != nil {
			return err
		}
	}

	// fsync the directory itself, but only if there was any file
	// fsynced before
	if len(toSync) > 0 {
		if err = fsync(d.path); err != nil {
			log.Debugf("Ignoring directory fsync failure on %v: %v", d.path, err)
		}
	}

	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	for _, name := range toSync {
		delete(d.staleFiles, name)
	}
	return nil
}

func fsync(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return util.CloseWhileHandlingError(f.Sync(), f)
}

// Returns a memory-mapped input over an existing file.
func (d *FSDirectory) OpenInput(name string, ctx IOContext) (IndexInput, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	return newMMapIndexInput(fmt.Sprintf("MMapIndexInput(path=%v)", filepath.Join(d.path, name)),
		filepath.Join(d.path, name))
}

func (d *FSDirectory) Close() error {
	d.Lock() // synchronized
	defer d.Unlock()
	d.isOpen = false
	return nil
}

func (d *FSDirectory) String() string {
	return fmt.Sprintf("FSDirectory@%v", d.path)
}

/*
Writes output with File.Write([]byte) (int, error)
*/
type FSIndexOutput struct {
	*OutputStreamIndexOutput
	parent *FSDirectory
	name   string
}

func newFSIndexOutput(parent *FSDirectory, name string) (*FSIndexOutput, error) {
	path := filepath.Join(parent.path, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FSIndexOutput{
		newOutputStreamIndexOutput(fmt.Sprintf("FSIndexOutput(path=%v)", path), file, CHUNK_SIZE),
		parent,
		name,
	}, nil
}

func (out *FSIndexOutput) Close() error {
	out.parent.onIndexOutputClosed(out.name)
	return out.OutputStreamIndexOutput.Close()
}
