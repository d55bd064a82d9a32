package store

import (
	"fmt"
	"io"

	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
)

// store/IOContext.java

const (
	IO_CONTEXT_TYPE_READ    = 2
	IO_CONTEXT_TYPE_FLUSH   = 3
	IO_CONTEXT_TYPE_DEFAULT = 4
)

type IOContextType int

var (
	IO_CONTEXT_DEFAULT  = IOContext{context: IO_CONTEXT_TYPE_DEFAULT}
	IO_CONTEXT_READONCE = NewIOContextBool(true)
	IO_CONTEXT_READ     = NewIOContextBool(false)
)

/*
IOContext holds additional details on the flush/search context. It is
passed by value to OpenInput() and CreateOutput().
*/
type IOContext struct {
	context   IOContextType
	FlushInfo *FlushInfo
	readOnce  bool
}

func NewIOContextForFlush(flushInfo *FlushInfo) IOContext {
	assertTrue(flushInfo != nil)
	return IOContext{
		context:   IO_CONTEXT_TYPE_FLUSH,
		FlushInfo: flushInfo,
	}
}

func NewIOContextBool(readOnce bool) IOContext {
	return IOContext{
		context:  IO_CONTEXT_TYPE_READ,
		readOnce: readOnce,
	}
}

func (ctx IOContext) String() string {
	return fmt.Sprintf("IOContext [context=%v, flushInfo=%v, readOnce=%v]",
		ctx.context, ctx.FlushInfo, ctx.readOnce)
}

type FlushInfo struct {
	NumDocs              int
	EstimatedSegmentSize int64
}

// store/Directory.java

var ErrAlreadyClosed = errors.New("this Directory is closed")

/*
A Directory is a flat list of files. Files may be written once, when
they are created. Once a file is created it may only be opened for
read, or deleted. Random access is permitted both when reading and
writing.
*/
type Directory interface {
	io.Closer
	// Returns the names of all files in this directory.
	ListAll() (paths []string, err error)
	// Returns true iff a file with the given name exists.
	FileExists(name string) bool
	// Removes an existing file in the directory.
	DeleteFile(name string) error
	// Returns the length of a file in the directory.
	FileLength(name string) (int64, error)
	// Creates a new, empty file in the directory with the given name.
	CreateOutput(name string, ctx IOContext) (IndexOutput, error)
	// Ensure that any writes to these files are moved to stable
	// storage.
	Sync(names []string) error
	// Returns a stream reading an existing file.
	OpenInput(name string, ctx IOContext) (IndexInput, error)
	// Returns a stream reading an existing file, computing checksum
	// as it reads.
	OpenChecksumInput(name string, ctx IOContext) (ChecksumIndexInput, error)
}

type DirectoryImplSPI interface {
	OpenInput(string, IOContext) (IndexInput, error)
}

type DirectoryImpl struct {
	spi DirectoryImplSPI
}

func NewDirectoryImpl(spi DirectoryImplSPI) *DirectoryImpl {
	return &DirectoryImpl{spi}
}

func (d *DirectoryImpl) OpenChecksumInput(name string, ctx IOContext) (ChecksumIndexInput, error) {
	in, err := d.spi.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	return NewBufferedChecksumIndexInput(in), nil
}

/*
Copies the file src in from to the directory to under the new file
name dest.

NOTE: this method does not check whether dest exists and will
overwrite it if it does.
*/
func Copy(from Directory, to Directory, src, dest string, ctx IOContext) (err error) {
	var os IndexOutput
	var is IndexInput
	var success = false
	defer func() {
		if success {
			err = util.Close(os, is)
		} else {
			util.CloseWhileSuppressingError(os, is)
			to.DeleteFile(dest) // ignore error
		}
	}()

	if os, err = to.CreateOutput(dest, ctx); err != nil {
		return err
	}
	if is, err = from.OpenInput(src, ctx); err != nil {
		return err
	}
	if err = os.CopyBytes(is, is.Length()); err != nil {
		return errors.Wrapf(err, "copy %v to %v", src, dest)
	}
	success = true
	return nil
}
