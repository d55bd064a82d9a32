package index

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
)

// index/IndexFileDeleter.java

const VERBOSE_REF_COUNT = false

/*
This type keeps track of each SegmentInfos instance that is still
"live", either because it corresponds to a segments_N file in the
Directory (a "commit", i.e. a committed SegmentInfos) or because it's
an in-memory SegmentInfos that a writer is actively updating but has
not yet committed. It uses simple reference counting to map the live
SegmentInfos instances to individual files in the Directory.

The same directory file may be referenced by more than one
IndexCommit, i.e. more than one SegmentInfos. Therefore we count how
many commits reference each file. When all the commits referencing a
certain file have been deleted, the refcount for that file becomes
zero, and the file is deleted.

A separate deletion policy interface (IndexDeletionPolicy) is
consulted on creation (OnInit) and once per commit (OnCommit), to
decide when a commit should be removed.

It is the business of the IndexDeletionPolicy to choose when to
delete commit points. The actual mechanics of file deletion, retrying,
etc, derived from the deletion of commit points is the business of
the IndexFileDeleter.
*/
type IndexFileDeleter struct {
	sync.Mutex

	// Files that we tried to delete but failed, so we will retry them
	// again later:
	deletable []string
	// Reference count for all files in the index.
	// Counts how many existing commits reference a file.
	refCounts map[string]*RefCount

	// Holds all commits (segments_N) currently in the index, oldest
	// first. This will have just 1 commit if you are using the default
	// delete policy (KeepOnlyLastCommitDeletionPolicy). Other policies
	// may leave commit points live for longer in which case this list
	// would be longer than 1.
	commits []*CommitPoint

	// Holds files we had incref'd from the previous non-commit checkpoint:
	lastFiles []string

	// Commits that the IndexDeletionPolicy have decided to delete:
	commitsToDelete []*CommitPoint

	infoStream util.InfoStream
	directory  store.Directory
	policy     IndexDeletionPolicy

	startingCommitDeleted bool
	lastSegmentInfos      *SegmentInfos
}

/*
Initialize the deleter: find all previous commits in the Directory,
incref the files they reference, call the policy to let it delete
commits. This will remove any files not referenced by any of the
commits.

segmentInfos is the in-memory state the caller resumes from; it is
usually the latest commit as returned by ReadLatestCommit, or a fresh
NewSegmentInfos() for an empty directory.
*/
func NewIndexFileDeleter(directory store.Directory, policy IndexDeletionPolicy,
	segmentInfos *SegmentInfos, infoStream util.InfoStream) (*IndexFileDeleter, error) {

	if infoStream == nil {
		infoStream = util.NO_OUTPUT
	}
	currentSegmentsFile := segmentInfos.SegmentsFileName()
	if infoStream.IsEnabled("IFD") {
		infoStream.Message("IFD", "init: current segments file is '%v'; deletePolicy=%v",
			currentSegmentsFile, policy)
	}

	fd := &IndexFileDeleter{
		infoStream: infoStream,
		policy:     policy,
		directory:  directory,
		refCounts:  make(map[string]*RefCount),
	}
	fd.Lock()
	defer fd.Unlock()

	// First pass: walk the files and initialize our ref counts:
	currentGen := segmentInfos.Generation()

	var currentCommitPoint *CommitPoint
	files, err := directory.ListAll()
	if err != nil {
		if _, ok := err.(*store.NoSuchDirectoryError); !ok {
			return nil, err
		}
		// it means the directory is empty, so ignore it
		files = nil
	}

	if currentSegmentsFile != "" {
		for _, filename := range files {
			if strings.HasSuffix(filename, "write.lock") ||
				!(util.CODEC_FILE_PATTERN.MatchString(filename) || strings.HasPrefix(filename, util.SEGMENTS)) {
				continue
			}
			// Add this file to refCounts with initial count 0:
			fd.refCount(filename)

			if !strings.HasPrefix(filename, util.SEGMENTS) {
				continue
			}
			// This is a commit (segments or segments_N), and it's valid
			// (<= the max gen). Load it, then incref all files it refers
			// to:
			if infoStream.IsEnabled("IFD") {
				infoStream.Message("IFD", "init: load commit '%v'", filename)
			}
			sis, err := ReadCommit(directory, filename)
			if errors.Is(err, os.ErrNotExist) {
				// The listing may be stale, so handle it as if the file
				// does not exist.
				if infoStream.IsEnabled("IFD") {
					infoStream.Message("IFD",
						"init: hit FileNotFound when loading commit '%v'; skipping this commit point",
						filename)
				}
				continue
			} else if err != nil {
				gen, _ := util.GenerationFromSegmentsFileName(filename)
				if gen <= currentGen {
					if length, _ := directory.FileLength(filename); length > 0 {
						return nil, err
					}
				}
				// Most likely we are opening an index that has an
				// aborted "future" commit, so suppress the error in
				// this case
				log.Debugf("init: ignoring unreadable commit '%v': %v", filename, err)
				continue
			}
			commitPoint := newCommitPoint(fd, directory, sis)
			if sis.Generation() == segmentInfos.Generation() {
				currentCommitPoint = commitPoint
			}
			fd.commits = append(fd.commits, commitPoint)
			fd.incRef(sis, true)

			if fd.lastSegmentInfos == nil || sis.Generation() > fd.lastSegmentInfos.Generation() {
				fd.lastSegmentInfos = sis
			}
		}
	}

	if currentCommitPoint == nil && currentSegmentsFile != "" {
		// We did not in fact see the segments_N file corresponding to
		// the segmentInfos that was passed in. Yet, it must exist. This
		// can happen when the directory listing was stale. So we try
		// now to explicitly open this commit point:
		sis, err := ReadCommit(directory, currentSegmentsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to locate current segments_N file '%v'", currentSegmentsFile)
		}
		if infoStream.IsEnabled("IFD") {
			infoStream.Message("IFD", "forced open of current segments file %v", currentSegmentsFile)
		}
		currentCommitPoint = newCommitPoint(fd, directory, sis)
		fd.commits = append(fd.commits, currentCommitPoint)
		fd.incRef(sis, true)
	}

	// We keep commits list in sorted order (oldest to newest):
	sort.Slice(fd.commits, func(i, j int) bool {
		return fd.commits[i].generation < fd.commits[j].generation
	})

	// Now delete anything with ref count at 0. These are presumably
	// abandoned files e.g. due to crash of the writer.
	var unreferenced []string
	for filename, rc := range fd.refCounts {
		if rc.count == 0 {
			unreferenced = append(unreferenced, filename)
		}
	}
	sort.Strings(unreferenced)
	for _, filename := range unreferenced {
		if infoStream.IsEnabled("IFD") {
			infoStream.Message("IFD", "init: removing unreferenced file '%v'", filename)
		}
		fd.deleteFile(filename)
		delete(fd.refCounts, filename)
	}

	// Finally, give policy a chance to remove things on startup:
	if len(fd.commits) > 0 {
		if err = policy.OnInit(fd.commitList()); err != nil {
			return nil, err
		}
	}

	// Always protect the incoming segmentInfos since sometime it may
	// not be the most recent commit
	fd.checkpointLocked(segmentInfos)

	fd.startingCommitDeleted = currentCommitPoint != nil && currentCommitPoint.IsDeleted()

	fd.deleteCommits()
	return fd, nil
}

func (fd *IndexFileDeleter) commitList() []model.IndexCommit {
	ans := make([]model.IndexCommit, len(fd.commits))
	for i, commit := range fd.commits {
		ans[i] = commit
	}
	return ans
}

// Returns the live commits, oldest first.
func (fd *IndexFileDeleter) Commits() []model.IndexCommit {
	fd.Lock()
	defer fd.Unlock()
	return fd.commitList()
}

// True if the policy deleted the commit the deleter was created with.
func (fd *IndexFileDeleter) StartingCommitDeleted() bool {
	return fd.startingCommitDeleted
}

// Returns the most recent commit found when the deleter was created.
func (fd *IndexFileDeleter) LastSegmentInfos() *SegmentInfos {
	return fd.lastSegmentInfos
}

/*
Remove the CommitPoint(s) in the commitsToDelete list by decRef'ing
all files from each SegmentInfos.
*/
func (fd *IndexFileDeleter) deleteCommits() {
	if len(fd.commitsToDelete) == 0 {
		return
	}
	// First decref all files that had been referred to by the
	// now-deleted commits:
	for _, commit := range fd.commitsToDelete {
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "deleteCommits: now decRef commit '%v'",
				commit.segmentsFileName)
		}
		fd.decRefFiles(commit.files)
	}
	fd.commitsToDelete = nil

	// Now compact commits to remove deleted ones (preserving the sort):
	writeTo := 0
	for _, commit := range fd.commits {
		if !commit.IsDeleted() {
			fd.commits[writeTo] = commit
			writeTo++
		}
	}
	for i := writeTo; i < len(fd.commits); i++ {
		fd.commits[i] = nil
	}
	fd.commits = fd.commits[:writeTo]
}

/*
Calls the policy again with the current commits, without a new
commit. A policy that keeps commits for other reasons (e.g. open
snapshots) uses this to release them once those reasons are gone.
*/
func (fd *IndexFileDeleter) RevisitPolicy() error {
	fd.Lock()
	defer fd.Unlock()
	if fd.infoStream.IsEnabled("IFD") {
		fd.infoStream.Message("IFD", "now revisitPolicy")
	}
	if len(fd.commits) == 0 {
		return nil
	}
	err := fd.policy.OnCommit(fd.commitList())
	fd.deleteCommits()
	return err
}

func (fd *IndexFileDeleter) Close() error {
	fd.Lock()
	defer fd.Unlock()
	// DecRef old files from the last checkpoint, if any:
	if len(fd.lastFiles) > 0 {
		fd.decRefFiles(fd.lastFiles)
		fd.lastFiles = nil
	}
	fd.deletePendingFiles()
	if len(fd.deletable) > 0 {
		return errors.Errorf("unable to delete files: %v", fd.deletable)
	}
	return nil
}

func (fd *IndexFileDeleter) deletePendingFiles() {
	if fd.deletable != nil {
		oldDeletable := fd.deletable
		fd.deletable = nil
		for _, filename := range oldDeletable {
			if fd.infoStream.IsEnabled("IFD") {
				fd.infoStream.Message("IFD", "delete pending file %v", filename)
			}
			fd.deleteFile(filename)
		}
	}
}

/*
Called when a "consistent change" was made to the index, meaning new
files are written to the index and the in-memory SegmentInfos have
been modified to point to those files.

This may or may not be a commit (segments_N may or may not have been
written).

We simply incref the files referenced by the new SegmentInfos and
decref the files we had previously seen (if any).

If this is a commit, we also call the policy to give it a chance to
remove other commits. If any commits are removed, we decref their
files as well. An error from the policy is returned after the commits
it managed to delete were released.
*/
func (fd *IndexFileDeleter) Checkpoint(segmentInfos *SegmentInfos, isCommit bool) error {
	fd.Lock()
	defer fd.Unlock()
	start := time.Now()
	defer func() {
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "%v to checkpoint", time.Since(start))
		}
	}()

	// Try again now to delete any previously un-deletable files
	fd.deletePendingFiles()

	if !isCommit {
		fd.checkpointLocked(segmentInfos)
		return nil
	}

	// Incref the files:
	fd.incRef(segmentInfos, true)

	// Append to our commits list:
	fd.commits = append(fd.commits, newCommitPoint(fd, fd.directory, segmentInfos))

	// Tell policy so it can remove commits:
	err := fd.policy.OnCommit(fd.commitList())

	// Decref files for commits that were deleted by the policy:
	fd.deleteCommits()
	return err
}

func (fd *IndexFileDeleter) checkpointLocked(segmentInfos *SegmentInfos) {
	fd.incRef(segmentInfos, false)
	// DecRef old files from the last checkpoint, if any:
	fd.decRefFiles(fd.lastFiles)
	// Save files so we can decr on next checkpoint/commit:
	fd.lastFiles = segmentInfos.Files(false)
}

func (fd *IndexFileDeleter) incRef(segmentInfos *SegmentInfos, isCommit bool) {
	// If this is a commit point, also incRef the segments_N file:
	for _, filename := range segmentInfos.Files(isCommit) {
		fd.incRefFile(filename)
	}
}

func (fd *IndexFileDeleter) incRefFile(filename string) {
	rc := fd.refCount(filename)
	if fd.infoStream.IsEnabled("IFD") && VERBOSE_REF_COUNT {
		fd.infoStream.Message("IFD", "  IncRef '%v': pre-incr count is %v", filename, rc.count)
	}
	rc.incRef()
}

func (fd *IndexFileDeleter) decRefFiles(files []string) {
	for _, file := range files {
		fd.decRefFile(file)
	}
}

func (fd *IndexFileDeleter) decRefFile(filename string) {
	rc := fd.refCount(filename)
	if fd.infoStream.IsEnabled("IFD") && VERBOSE_REF_COUNT {
		fd.infoStream.Message("IFD", "  DecRef '%v': pre-decr count is %v", filename, rc.count)
	}
	if rc.decRef() == 0 {
		// This file is no longer referenced by any past commit points
		// nor by the in-memory SegmentInfos:
		fd.deleteFile(filename)
		delete(fd.refCounts, filename)
	}
}

// Returns true if the file is referenced by a commit or by the last
// checkpoint.
func (fd *IndexFileDeleter) Exists(filename string) bool {
	fd.Lock()
	defer fd.Unlock()
	if v, ok := fd.refCounts[filename]; ok {
		return v.count > 0
	}
	return false
}

func (fd *IndexFileDeleter) refCount(filename string) *RefCount {
	rc, ok := fd.refCounts[filename]
	if !ok {
		rc = newRefCount(filename)
		fd.refCounts[filename] = rc
	}
	return rc
}

/*
Deletes the specified files, but only if they are new (have not yet
been incref'd).
*/
func (fd *IndexFileDeleter) DeleteNewFiles(files ...string) {
	fd.Lock()
	defer fd.Unlock()
	for _, filename := range files {
		// NOTE: it's very unusual yet possible for the refCount to be
		// present and 0: it can happen if you open the deleter on a
		// crashed index, and it removes a bunch of unref'd files, and
		// then you add new docs, and it reuses that segment name.
		if rf, ok := fd.refCounts[filename]; !ok || rf.count == 0 {
			if fd.infoStream.IsEnabled("IFD") {
				fd.infoStream.Message("IFD", "delete new file '%v'", filename)
			}
			fd.deleteFile(filename)
		}
	}
}

func (fd *IndexFileDeleter) deleteFile(filename string) {
	if fd.infoStream.IsEnabled("IFD") {
		fd.infoStream.Message("IFD", "delete '%v'", filename)
	}
	if err := fd.directory.DeleteFile(filename); err != nil && fd.directory.FileExists(filename) {
		// The file may still be open elsewhere, so queue it for
		// subsequent deletion.
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "unable to remove file '%v': %v; will re-try later.", filename, err)
		}
		log.Noticef("Unable to remove file '%v': %v; will re-try later.", filename, err)
		fd.deletable = append(fd.deletable, filename)
	}
}

// Tracks the reference count for a single index file.
type RefCount struct {
	// filename used only for better assert error messages
	filename string
	initDone bool
	count    int
}

func newRefCount(filename string) *RefCount {
	return &RefCount{filename: filename}
}

func (rf *RefCount) incRef() int {
	if !rf.initDone {
		rf.initDone = true
	} else {
		assert2(rf.count > 0, "RefCount is 0 pre-increment for file %v", rf.filename)
	}
	rf.count++
	return rf.count
}

func (rf *RefCount) decRef() int {
	assert2(rf.count > 0, "RefCount is 0 pre-decrement for file %v", rf.filename)
	rf.count--
	return rf.count
}

/*
Holds details for each commit point. This is also passed to the
deletion policy. Delete() only marks the commit; its files are
released by the deleter once the policy callback returns.
*/
type CommitPoint struct {
	files            []string
	segmentsFileName string
	deleted          bool
	directory        store.Directory
	deleter          *IndexFileDeleter
	generation       int64
	userData         map[string]string
	segmentCount     int
}

var _ model.IndexCommit = (*CommitPoint)(nil)

func newCommitPoint(deleter *IndexFileDeleter, directory store.Directory,
	segmentInfos *SegmentInfos) *CommitPoint {
	return &CommitPoint{
		directory:        directory,
		deleter:          deleter,
		userData:         segmentInfos.UserData(),
		segmentsFileName: segmentInfos.SegmentsFileName(),
		generation:       segmentInfos.Generation(),
		files:            segmentInfos.Files(true),
		segmentCount:     segmentInfos.Size(),
	}
}

func (cp *CommitPoint) String() string {
	return fmt.Sprintf("IndexFileDeleter.CommitPoint(%v)", cp.segmentsFileName)
}

func (cp *CommitPoint) SegmentCount() int            { return cp.segmentCount }
func (cp *CommitPoint) SegmentsFileName() string     { return cp.segmentsFileName }
func (cp *CommitPoint) FileNames() ([]string, error) { return cp.files, nil }
func (cp *CommitPoint) Directory() store.Directory   { return cp.directory }
func (cp *CommitPoint) Generation() int64            { return cp.generation }

func (cp *CommitPoint) UserData() (map[string]string, error) {
	return cp.userData, nil
}

// Called only by the deletion policy, while the deleter holds its lock.
func (cp *CommitPoint) Delete() error {
	if cp.deleter == nil {
		return errors.Errorf("commit %v is read-only", cp.segmentsFileName)
	}
	if !cp.deleted {
		cp.deleted = true
		cp.deleter.commitsToDelete = append(cp.deleter.commitsToDelete, cp)
	}
	return nil
}

func (cp *CommitPoint) IsDeleted() bool { return cp.deleted }

// index/DirectoryReader.java

/*
Returns all commit points that exist in the Directory, oldest first.
The returned commits are read-only: their Delete() returns an error.
*/
func ListCommits(dir store.Directory) ([]model.IndexCommit, error) {
	files, err := dir.ListAll()
	if err != nil {
		return nil, err
	}
	latest, err := ReadLatestCommit(dir)
	if err != nil {
		return nil, err
	}
	commits := []model.IndexCommit{newCommitPoint(nil, dir, latest)}
	for _, file := range files {
		if !strings.HasPrefix(file, util.SEGMENTS) || file == latest.SegmentsFileName() {
			continue
		}
		gen, err := util.GenerationFromSegmentsFileName(file)
		if err != nil || gen >= latest.Generation() {
			continue
		}
		sis, err := ReadCommit(dir, file)
		if errors.Is(err, os.ErrNotExist) {
			// the commit was removed between listing and reading
			continue
		} else if err != nil {
			return nil, err
		}
		commits = append(commits, newCommitPoint(nil, dir, sis))
	}
	sort.Sort(model.IndexCommits(commits))
	return commits, nil
}
