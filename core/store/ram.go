package store

import (
	"fmt"
	"hash"
	"hash/crc32"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
)

// store/RAMDirectory.java

/*
A memory-resident Directory implementation.

Warning: This type is not intended to work with huge indexes.
Everything beyond several hundred megabytes will waste resources (GC
cycles), because it uses an internal buffer size of 1024 bytes,
producing millions of []byte{1024} slices. It is meant for tests and
small memory-resident indexes.
*/
type RAMDirectory struct {
	*DirectoryImpl

	isOpen      int32
	fileMap     map[string]*RAMFile // synchronized
	fileMapLock *sync.RWMutex
	sizeInBytes int64 // atomic
}

func NewRAMDirectory() *RAMDirectory {
	ans := &RAMDirectory{
		isOpen:      1,
		fileMap:     make(map[string]*RAMFile),
		fileMapLock: &sync.RWMutex{},
	}
	ans.DirectoryImpl = NewDirectoryImpl(ans)
	return ans
}

func (rd *RAMDirectory) ensureOpen() error {
	if atomic.LoadInt32(&rd.isOpen) == 0 {
		return ErrAlreadyClosed
	}
	return nil
}

func (rd *RAMDirectory) ListAll() (names []string, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	names = make([]string, 0, len(rd.fileMap))
	for name := range rd.fileMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Returns true iff the named file exists in this directory
func (rd *RAMDirectory) FileExists(name string) bool {
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	_, ok := rd.fileMap[name]
	return ok
}

func (rd *RAMDirectory) file(name string) (*RAMFile, error) {
	if err := rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	file, ok := rd.fileMap[name]
	if !ok {
		return nil, errors.Wrap(os.ErrNotExist, name)
	}
	return file, nil
}

// Returns the length in bytes of a file in the directory.
func (rd *RAMDirectory) FileLength(name string) (length int64, err error) {
	file, err := rd.file(name)
	if err != nil {
		return 0, err
	}
	return file.Length(), nil
}

// Return total size in bytes of all files in this directory.
func (rd *RAMDirectory) RamBytesUsed() int64 {
	return atomic.LoadInt64(&rd.sizeInBytes)
}

// Removes an existing file in the directory
func (rd *RAMDirectory) DeleteFile(name string) error {
	if err := rd.ensureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	file, ok := rd.fileMap[name]
	if !ok {
		return errors.Wrap(os.ErrNotExist, name)
	}
	delete(rd.fileMap, name)
	file.directory = nil
	atomic.AddInt64(&rd.sizeInBytes, -file.sizeInBytes)
	return nil
}

// Creates a new, empty file in the directory with the given name.
// Returns a stream writing this file:
func (rd *RAMDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	file := newRAMFile(rd)
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	if existing, ok := rd.fileMap[name]; ok {
		atomic.AddInt64(&rd.sizeInBytes, -existing.sizeInBytes)
		existing.directory = nil
	}
	rd.fileMap[name] = file
	return NewRAMOutputStream(name, file, true), nil
}

func (rd *RAMDirectory) Sync(names []string) error {
	return nil
}

// Returns a stream reading an existing file.
func (rd *RAMDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	file, err := rd.file(name)
	if err != nil {
		return nil, err
	}
	return newRAMInputStream(name, file)
}

// Closes the store to future operations, releasing associated memroy.
func (rd *RAMDirectory) Close() error {
	atomic.StoreInt32(&rd.isOpen, 0)
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	rd.fileMap = make(map[string]*RAMFile)
	return nil
}

func (rd *RAMDirectory) String() string {
	return fmt.Sprintf("RAMDirectory@%p", rd)
}

// store/RAMFile.java

// Represents a file in RAM as a list of []byte buffers.
type RAMFile struct {
	sync.Locker
	buffers     [][]byte
	length      int64
	directory   *RAMDirectory
	sizeInBytes int64
}

func newRAMFileBuffer() *RAMFile {
	return &RAMFile{Locker: &sync.Mutex{}}
}

func newRAMFile(directory *RAMDirectory) *RAMFile {
	return &RAMFile{
		Locker:    &sync.Mutex{},
		directory: directory,
	}
}

func (rf *RAMFile) Length() int64 {
	rf.Lock()
	defer rf.Unlock()
	return rf.length
}

func (rf *RAMFile) SetLength(length int64) {
	rf.Lock()
	defer rf.Unlock()
	rf.length = length
}

func (rf *RAMFile) addBuffer(size int) []byte {
	buffer := make([]byte, size)
	rf.Lock()
	defer rf.Unlock()
	rf.buffers = append(rf.buffers, buffer)
	rf.sizeInBytes += int64(size)
	if rf.directory != nil {
		atomic.AddInt64(&rf.directory.sizeInBytes, int64(size))
	}
	return buffer
}

func (rf *RAMFile) Buffer(index int) []byte {
	rf.Lock()
	defer rf.Unlock()
	return rf.buffers[index]
}

func (rf *RAMFile) numBuffers() int {
	rf.Lock()
	defer rf.Unlock()
	return len(rf.buffers)
}

// store/RAMOutputStream.java

const RAM_BUFFER_SIZE = 1024

/*
A memory-resident IndexOutput implementation. Also used as a scratch
buffer that can be replayed into another output with WriteTo().
*/
type RAMOutputStream struct {
	*IndexOutputImpl

	name string
	file *RAMFile

	currentBuffer      []byte
	currentBufferIndex int

	bufferPosition int
	bufferStart    int64
	bufferLength   int

	crc hash.Hash32
}

// Construct an empty output buffer.
func NewRAMOutputStreamBuffer() *RAMOutputStream {
	return NewRAMOutputStream("noname", newRAMFileBuffer(), false)
}

func NewRAMOutputStream(name string, f *RAMFile, checksum bool) *RAMOutputStream {
	ans := &RAMOutputStream{
		name:               name,
		file:               f,
		currentBufferIndex: -1,
	}
	if checksum {
		ans.crc = crc32.NewIEEE()
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

// Copy the current contents of this buffer to the named output.
func (out *RAMOutputStream) WriteTo(output util.DataOutput) error {
	if err := out.flush(); err != nil {
		return err
	}
	end := out.file.Length()
	pos := int64(0)
	for buffer := 0; pos < end; buffer++ {
		length := int64(RAM_BUFFER_SIZE)
		if nextPos := pos + length; nextPos > end { // at the last buffer
			length = end - pos
		}
		if err := output.WriteBytes(out.file.Buffer(buffer)[:length]); err != nil {
			return err
		}
		pos += length
	}
	return nil
}

// Copy the current contents of this buffer to the given slice.
func (out *RAMOutputStream) WriteToBytes(bytes []byte) error {
	if err := out.flush(); err != nil {
		return err
	}
	pos := 0
	for buffer := 0; int64(pos) < out.file.Length(); buffer++ {
		pos += copy(bytes[pos:out.file.Length()], out.file.Buffer(buffer))
	}
	return nil
}

// Resets this to an empty file.
func (out *RAMOutputStream) Reset() {
	out.currentBuffer = nil
	out.currentBufferIndex = -1
	out.bufferPosition = 0
	out.bufferStart = 0
	out.bufferLength = 0
	out.file.SetLength(0)
	if out.crc != nil {
		out.crc.Reset()
	}
}

func (out *RAMOutputStream) Close() error {
	return out.flush()
}

func (out *RAMOutputStream) WriteByte(b byte) error {
	if out.bufferPosition == out.bufferLength {
		out.currentBufferIndex++
		out.switchCurrentBuffer()
	}
	if out.crc != nil {
		out.crc.Write([]byte{b})
	}
	out.currentBuffer[out.bufferPosition] = b
	out.bufferPosition++
	return nil
}

func (out *RAMOutputStream) WriteBytes(buf []byte) error {
	if out.crc != nil {
		out.crc.Write(buf)
	}
	for len(buf) > 0 {
		if out.bufferPosition == out.bufferLength {
			out.currentBufferIndex++
			out.switchCurrentBuffer()
		}
		n := copy(out.currentBuffer[out.bufferPosition:], buf)
		out.bufferPosition += n
		buf = buf[n:]
	}
	return nil
}

func (out *RAMOutputStream) switchCurrentBuffer() {
	if out.currentBufferIndex == out.file.numBuffers() {
		out.currentBuffer = out.file.addBuffer(RAM_BUFFER_SIZE)
	} else {
		out.currentBuffer = out.file.Buffer(out.currentBufferIndex)
	}
	out.bufferPosition = 0
	out.bufferStart = int64(RAM_BUFFER_SIZE) * int64(out.currentBufferIndex)
	out.bufferLength = len(out.currentBuffer)
}

func (out *RAMOutputStream) setFileLength() {
	if pointer := out.bufferStart + int64(out.bufferPosition); pointer > out.file.Length() {
		out.file.SetLength(pointer)
	}
}

func (out *RAMOutputStream) flush() error {
	out.setFileLength()
	return nil
}

func (out *RAMOutputStream) FilePointer() int64 {
	if out.currentBufferIndex < 0 {
		return 0
	}
	return out.bufferStart + int64(out.bufferPosition)
}

func (out *RAMOutputStream) Checksum() int64 {
	assert2(out.crc != nil, "internal RAMOutputStream created with checksum disabled")
	return int64(out.crc.Sum32())
}

func (out *RAMOutputStream) String() string {
	return fmt.Sprintf("RAMOutputStream(name=%v)", out.name)
}

// store/RAMInputStream.java

// A memory-resident IndexInput implementation.
type RAMInputStream struct {
	*IndexInputImpl

	file   *RAMFile
	length int64

	currentBuffer      []byte
	currentBufferIndex int

	bufferPosition int
	bufferStart    int64
	bufferLength   int
}

func newRAMInputStream(name string, f *RAMFile) (*RAMInputStream, error) {
	length := f.Length()
	if length/RAM_BUFFER_SIZE >= int64(1<<31-1) {
		return nil, errors.Errorf("RAMInputStream too large length=%v: %v", length, name)
	}
	ans := &RAMInputStream{file: f, length: length, currentBufferIndex: -1}
	ans.IndexInputImpl = NewIndexInputImpl(fmt.Sprintf("RAMInputStream(name=%v)", name), ans)
	return ans, nil
}

func (in *RAMInputStream) Close() error {
	return nil
}

func (in *RAMInputStream) Length() int64 {
	return in.length
}

func (in *RAMInputStream) ReadByte() (byte, error) {
	if in.bufferPosition >= in.bufferLength {
		in.currentBufferIndex++
		if err := in.switchCurrentBuffer(); err != nil {
			return 0, err
		}
	}
	b := in.currentBuffer[in.bufferPosition]
	in.bufferPosition++
	return b, nil
}

func (in *RAMInputStream) ReadBytes(buf []byte) error {
	for len(buf) > 0 {
		if in.bufferPosition >= in.bufferLength {
			in.currentBufferIndex++
			if err := in.switchCurrentBuffer(); err != nil {
				return err
			}
		}
		n := copy(buf, in.currentBuffer[in.bufferPosition:in.bufferLength])
		in.bufferPosition += n
		buf = buf[n:]
	}
	return nil
}

func (in *RAMInputStream) switchCurrentBuffer() error {
	in.bufferStart = int64(RAM_BUFFER_SIZE) * int64(in.currentBufferIndex)
	if in.bufferStart >= in.length || in.currentBufferIndex >= in.file.numBuffers() {
		// end of file reached, no more buffers left
		in.currentBufferIndex--
		in.bufferStart -= RAM_BUFFER_SIZE
		return errReadPastEOF(in)
	}
	in.currentBuffer = in.file.Buffer(in.currentBufferIndex)
	in.bufferPosition = 0
	in.bufferLength = in.bufferLengthAt(in.bufferStart)
	return nil
}

func (in *RAMInputStream) bufferLengthAt(start int64) int {
	if n := in.length - start; n < RAM_BUFFER_SIZE {
		return int(n)
	}
	return RAM_BUFFER_SIZE
}

func (in *RAMInputStream) FilePointer() int64 {
	if in.currentBufferIndex < 0 {
		return 0
	}
	return in.bufferStart + int64(in.bufferPosition)
}

func (in *RAMInputStream) Seek(pos int64) error {
	if pos < 0 || pos > in.length {
		return errors.Errorf("seek to %v out of bounds: %v", pos, in)
	}
	index := int(pos / RAM_BUFFER_SIZE)
	if pos == in.length && pos%RAM_BUFFER_SIZE == 0 {
		// positioned at EOF on a buffer boundary: park at the end of
		// the previous buffer so the next read fails cleanly
		in.currentBufferIndex = index - 1
		in.currentBuffer = nil
		if index > 0 {
			in.currentBuffer = in.file.Buffer(index - 1)
		}
		in.bufferStart = int64(index-1) * RAM_BUFFER_SIZE
		in.bufferLength = RAM_BUFFER_SIZE
		in.bufferPosition = RAM_BUFFER_SIZE
		return nil
	}
	in.currentBufferIndex = index
	in.currentBuffer = in.file.Buffer(index)
	in.bufferStart = int64(index) * RAM_BUFFER_SIZE
	in.bufferLength = in.bufferLengthAt(in.bufferStart)
	in.bufferPosition = int(pos - in.bufferStart)
	return nil
}

func (in *RAMInputStream) Clone() IndexInput {
	ans := &RAMInputStream{
		file:               in.file,
		length:             in.length,
		currentBuffer:      in.currentBuffer,
		currentBufferIndex: in.currentBufferIndex,
		bufferPosition:     in.bufferPosition,
		bufferStart:        in.bufferStart,
		bufferLength:       in.bufferLength,
	}
	ans.IndexInputImpl = NewIndexInputImpl(in.desc, ans)
	return ans
}
