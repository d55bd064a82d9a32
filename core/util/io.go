package util

import (
	"io"

	"github.com/hashicorp/go-multierror"
)

// util/IOUtils.java

/*
Closes all given io.Closers, suppressing all errors raised by the
closers. Nil values are skipped.
*/
func CloseWhileSuppressingError(objects ...io.Closer) {
	for _, object := range objects {
		if object == nil {
			continue
		}
		object.Close()
	}
}

/*
Closes all given io.Closers. Every closer is attempted even if an
earlier one failed; the returned error aggregates every failure in
order, or is nil when all of them succeeded.
*/
func Close(objects ...io.Closer) error {
	var result *multierror.Error
	for _, object := range objects {
		if object == nil {
			continue
		}
		if err := object.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

/*
Closes all given io.Closers after priorErr was hit. priorErr is
returned with close failures appended to it; if priorErr is nil this
behaves like Close().
*/
func CloseWhileHandlingError(priorErr error, objects ...io.Closer) error {
	err := Close(objects...)
	if priorErr == nil {
		return err
	}
	if err == nil {
		return priorErr
	}
	return multierror.Append(priorErr, err)
}

type FileDeleter interface {
	DeleteFile(name string) error
}

/*
Deletes all given files, suppressing all errors.

Note that the files should not be nil.
*/
func DeleteFilesIgnoringErrors(dir FileDeleter, files ...string) {
	for _, name := range files {
		dir.DeleteFile(name) // ignore error
	}
}
