package store

import (
	"fmt"
	"sort"
	"sync"
)

// store/TrackingDirectoryWrapper.java

/*
A delegating Directory that records which files were written to and
deleted. A segment flush writes through it to learn the files the
segment consists of.
*/
type TrackingDirectoryWrapper struct {
	Directory
	sync.Locker
	createdFilenames map[string]bool // synchronized
}

func NewTrackingDirectoryWrapper(other Directory) *TrackingDirectoryWrapper {
	return &TrackingDirectoryWrapper{
		Directory:        other,
		Locker:           &sync.Mutex{},
		createdFilenames: make(map[string]bool),
	}
}

func (w *TrackingDirectoryWrapper) DeleteFile(name string) error {
	func() {
		w.Lock()
		defer w.Unlock()
		delete(w.createdFilenames, name)
	}()
	return w.Directory.DeleteFile(name)
}

func (w *TrackingDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	out, err := w.Directory.CreateOutput(name, ctx)
	if err != nil {
		return nil, err
	}
	w.Lock()
	defer w.Unlock()
	w.createdFilenames[name] = true
	return out, nil
}

func (w *TrackingDirectoryWrapper) String() string {
	return fmt.Sprintf("TrackingDirectoryWrapper(%v)", w.Directory)
}

// Returns a copy of the names of the files created and not deleted
// since the wrapper was created.
func (w *TrackingDirectoryWrapper) CreatedFiles() map[string]bool {
	w.Lock()
	defer w.Unlock()
	ans := make(map[string]bool, len(w.createdFilenames))
	for name := range w.createdFilenames {
		ans[name] = true
	}
	return ans
}

// Returns the created file names in sorted order.
func (w *TrackingDirectoryWrapper) CreatedFileNames() []string {
	w.Lock()
	defer w.Unlock()
	ans := make([]string, 0, len(w.createdFilenames))
	for name := range w.createdFilenames {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

func (w *TrackingDirectoryWrapper) ContainsFile(name string) bool {
	w.Lock()
	defer w.Unlock()
	return w.createdFilenames[name]
}
