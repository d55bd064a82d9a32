package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/seqno"
	"github.com/ironsweet/esengine/core/translog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// index/engine/CombinedDeletionPolicy.java

// The translog side of commit retention.
type TranslogRetention interface {
	SetLocalCheckpointOfSafeCommit(localCheckpoint int64) error
}

// The soft-deletes side of commit retention.
type SoftDeletesRetention interface {
	SetLocalCheckpointOfSafeCommit(localCheckpoint int64) error
}

/*
Notified about commits for replication or backup. OnNewAcquiredCommit
receives a snapshot of every new last commit together with the files
it added over the previous one; the receiver owns the snapshot and
must release it through ReleaseCommit. Callbacks run outside the
policy lock and may call back into the policy.
*/
type CommitsListener interface {
	OnNewAcquiredCommit(commit model.IndexCommit, newFiles map[string]struct{})
	OnDeletedCommit(commit model.IndexCommit)
}

// Local checkpoint and doc count of the safe commit.
type SafeCommitInfo struct {
	LocalCheckpoint int64
	DocCount        int
}

var EMPTY_SAFE_COMMIT_INFO = SafeCommitInfo{LocalCheckpoint: seqno.NO_OPS_PERFORMED, DocCount: 0}

func (info SafeCommitInfo) String() string {
	return fmt.Sprintf("SafeCommitInfo{localCheckpoint=%v, docCount=%v}", info.LocalCheckpoint, info.DocCount)
}

type Option func(*CombinedDeletionPolicy)

// Sets how the doc count of a new safe commit is read.
func WithDocCountReader(reader func(model.IndexCommit) (int, error)) Option {
	return func(p *CombinedDeletionPolicy) {
		p.docCountOfCommit = reader
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(p *CombinedDeletionPolicy) {
		p.metrics = metrics
	}
}

/*
An IndexDeletionPolicy that coordinates between index commits and the
retention of translog generation files, making sure that all translog
files that are needed to recover from an index commit are not
deleted.

In particular, this policy deletes index commits whose max sequence
number is at most the current global checkpoint, except the index
commit which has the highest max sequence number among those.
*/
type CombinedDeletionPolicy struct {
	logger            logrus.FieldLogger
	translogPolicy    TranslogRetention
	softDeletesPolicy SoftDeletesRetention
	globalCheckpoint  func() int64
	listener          CommitsListener
	docCountOfCommit  func(model.IndexCommit) (int, error)
	metrics           *Metrics

	mu sync.Mutex
	// commit generation -> number of open snapshots
	snapshottedCommits map[int64]int
	safeCommit         model.IndexCommit
	lastCommit         model.IndexCommit
	safeCommitInfo     SafeCommitInfo

	maxSeqNoOfNextSafeCommit atomic.Int64
}

var _ index.IndexDeletionPolicy = (*CombinedDeletionPolicy)(nil)

func NewCombinedDeletionPolicy(logger logrus.FieldLogger,
	translogPolicy TranslogRetention, softDeletesPolicy SoftDeletesRetention,
	globalCheckpoint func() int64, listener CommitsListener, opts ...Option) *CombinedDeletionPolicy {

	if logger == nil {
		nop := logrus.New()
		nop.SetLevel(logrus.PanicLevel)
		logger = nop
	}
	p := &CombinedDeletionPolicy{
		logger:             logger.WithField("component", "combined_deletion_policy"),
		translogPolicy:     translogPolicy,
		softDeletesPolicy:  softDeletesPolicy,
		globalCheckpoint:   globalCheckpoint,
		listener:           listener,
		docCountOfCommit:   index.ReadCommitDocCount,
		snapshottedCommits: make(map[int64]int),
		safeCommitInfo:     EMPTY_SAFE_COMMIT_INFO,
	}
	p.maxSeqNoOfNextSafeCommit.Store(math.MaxInt64)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

/*
Runs the same classification as OnCommit and then requires the last
commit to be safe: an engine must never resume from a commit that
holds operations above the global checkpoint.
*/
func (p *CombinedDeletionPolicy) OnInit(commits []model.IndexCommit) error {
	if len(commits) == 0 {
		return errors.New("index is opened, but we have no commits")
	}
	if err := p.OnCommit(commits); err != nil {
		return err
	}
	p.mu.Lock()
	safeCommit, lastCommit := p.safeCommit, p.lastCommit
	p.mu.Unlock()
	if safeCommit.Generation() != commits[len(commits)-1].Generation() {
		return &InvalidSafeCommitError{
			GlobalCheckpoint: p.globalCheckpoint(),
			LastCommitInfo:   commitSeqNoInfo(lastCommit),
			SafeCommitInfo:   commitSeqNoInfo(safeCommit),
		}
	}
	return nil
}

func commitSeqNoInfo(commit model.IndexCommit) seqno.CommitInfo {
	userData, err := commit.UserData()
	if err != nil {
		return seqno.CommitInfo{MaxSeqNo: seqno.UNASSIGNED_SEQ_NO, LocalCheckpoint: seqno.UNASSIGNED_SEQ_NO}
	}
	info, _ := seqno.LoadSeqNoInfoFromCommit(userData)
	return info
}

// What the listener is told once the lock is released.
type commitsNotification struct {
	newCommit      *SnapshotIndexCommit
	newFiles       map[string]struct{}
	deletedCommits []model.IndexCommit
}

/*
Classifies the commits, newest to oldest, against the current global
checkpoint, then publishes the new safe and last commit, pins the
retention floors of the translog and soft-deletes policies and
deletes every unreferenced commit older than the safe commit.

The classification reads commit user data without holding the lock,
so concurrent AcquireIndexCommit/ReleaseCommit calls are only blocked
while the result is published. Listener callbacks run after the lock
is released.
*/
func (p *CombinedDeletionPolicy) OnCommit(commits []model.IndexCommit) error {
	if len(commits) == 0 {
		return errors.New("no commits to classify")
	}
	keptPosition, err := indexOfKeptCommits(commits, p.globalCheckpoint())
	if err != nil {
		return err
	}
	maxSeqNoOfNextSafeCommit := int64(math.MaxInt64)
	if keptPosition < len(commits)-1 {
		next := commits[keptPosition+1]
		userData, err := next.UserData()
		if err != nil {
			return err
		}
		if maxSeqNoOfNextSafeCommit, err = seqno.ReadSeqNo(userData, seqno.MAX_SEQ_NO); err != nil {
			return errors.Wrapf(err, "commit %v", next.SegmentsFileName())
		}
	}
	safeCommit := commits[keptPosition]
	newSafeCommitInfo := p.newSafeCommitInfo(safeCommit)

	notification, err := p.publish(commits, keptPosition, newSafeCommitInfo, maxSeqNoOfNextSafeCommit)
	p.metrics.addCommitsDeleted(len(notification.deletedCommits))
	p.metrics.setCommitsRetained(len(commits) - len(notification.deletedCommits))
	p.notify(notification)
	return err
}

func (p *CombinedDeletionPolicy) publish(commits []model.IndexCommit, keptPosition int,
	newSafeCommitInfo SafeCommitInfo, maxSeqNoOfNextSafeCommit int64) (n commitsNotification, err error) {

	p.mu.Lock()
	defer p.mu.Unlock()
	p.safeCommitInfo = newSafeCommitInfo
	p.metrics.setSafeCommitLocalCheckpoint(newSafeCommitInfo.LocalCheckpoint)
	previousLastCommit := p.lastCommit
	p.lastCommit = commits[len(commits)-1]
	p.safeCommit = commits[keptPosition]
	if err = p.updateRetentionPolicy(); err != nil {
		return n, err
	}
	p.maxSeqNoOfNextSafeCommit.Store(maxSeqNoOfNextSafeCommit)

	if p.listener != nil && (previousLastCommit == nil ||
		previousLastCommit.Generation() != p.lastCommit.Generation()) {
		newFiles, err := newFileNames(previousLastCommit, p.lastCommit)
		if err != nil {
			return n, err
		}
		n.newCommit, n.newFiles = p.acquireLocked(false), newFiles
	}

	for _, commit := range commits[:keptPosition] {
		if _, ok := p.snapshottedCommits[commit.Generation()]; ok {
			continue
		}
		if err = p.deleteCommit(commit); err != nil {
			return n, err
		}
		n.deletedCommits = append(n.deletedCommits, commit)
	}
	return n, nil
}

func (p *CombinedDeletionPolicy) notify(n commitsNotification) {
	if p.listener == nil {
		return
	}
	if n.newCommit != nil {
		p.listener.OnNewAcquiredCommit(n.newCommit, n.newFiles)
	}
	for _, commit := range n.deletedCommits {
		p.listener.OnDeletedCommit(commit)
	}
}

func (p *CombinedDeletionPolicy) newSafeCommitInfo(newSafeCommit model.IndexCommit) SafeCommitInfo {
	current := p.SafeCommitInfo()
	userData, err := newSafeCommit.UserData()
	var localCheckpoint int64
	if err == nil {
		localCheckpoint, err = seqno.ReadSeqNo(userData, seqno.LOCAL_CHECKPOINT_KEY)
	}
	if err != nil {
		p.logger.WithError(err).WithField("action", "safe_commit_info").
			Warn("failed to get the local checkpoint from the safe commit; use the info from the previous safe commit")
		return current
	}
	if current.LocalCheckpoint == localCheckpoint {
		return current
	}
	docCount, err := p.docCountOfCommit(newSafeCommit)
	if err != nil {
		p.logger.WithError(err).WithField("action", "safe_commit_info").
			Warn("failed to get the total docs from the safe commit; use the total docs from the previous safe commit")
		return SafeCommitInfo{LocalCheckpoint: localCheckpoint, DocCount: current.DocCount}
	}
	return SafeCommitInfo{LocalCheckpoint: localCheckpoint, DocCount: docCount}
}

func (p *CombinedDeletionPolicy) deleteCommit(commit model.IndexCommit) error {
	assert2(!commit.IsDeleted(), "index commit [%v] is deleted twice", CommitDescription(commit))
	p.logger.WithFields(logrus.Fields{
		"action": "delete_commit",
		"commit": CommitDescription(commit),
	}).Debug("delete index commit")
	if err := commit.Delete(); err != nil {
		return err
	}
	assert2(commit.IsDeleted(), "deletion of commit [%v] was suppressed", CommitDescription(commit))
	return nil
}

// Must hold the lock.
func (p *CombinedDeletionPolicy) updateRetentionPolicy() error {
	p.logger.WithFields(logrus.Fields{
		"action":      "update_retention",
		"safe_commit": CommitDescription(p.safeCommit),
		"last_commit": CommitDescription(p.lastCommit),
	}).Debug("safe commit and last commit")
	assert2(!p.safeCommit.IsDeleted(), "the safe commit must not be deleted")
	assert2(!p.lastCommit.IsDeleted(), "the last commit must not be deleted")

	userData, err := p.safeCommit.UserData()
	var localCheckpoint int64
	if err == nil {
		localCheckpoint, err = seqno.ReadSeqNo(userData, seqno.LOCAL_CHECKPOINT_KEY)
	}
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"action":      "update_retention",
			"safe_commit": p.safeCommit.SegmentsFileName(),
		}).Warn("failed to read the local checkpoint of the safe commit; retention floors are unchanged")
		return nil
	}
	if p.softDeletesPolicy != nil {
		if err = p.softDeletesPolicy.SetLocalCheckpointOfSafeCommit(localCheckpoint); err != nil {
			return errors.Wrap(err, "soft-deletes retention")
		}
	}
	if p.translogPolicy != nil {
		if err = p.translogPolicy.SetLocalCheckpointOfSafeCommit(localCheckpoint); err != nil {
			return errors.Wrap(err, "translog retention")
		}
	}
	return nil
}

func (p *CombinedDeletionPolicy) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("CombinedDeletionPolicy{safeCommit=%v, lastCommit=%v, snapshottedCommits=%v}",
		segmentsFileNameOf(p.safeCommit), segmentsFileNameOf(p.lastCommit), len(p.snapshottedCommits))
}

func segmentsFileNameOf(commit model.IndexCommit) string {
	if commit == nil {
		return "none"
	}
	return commit.SegmentsFileName()
}

func (p *CombinedDeletionPolicy) SafeCommitInfo() SafeCommitInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.safeCommitInfo
}

/*
Captures the most recent commit point or the most recent safe commit
point. Index files of the captured commit are not released until it
is passed to ReleaseCommit.
*/
func (p *CombinedDeletionPolicy) AcquireIndexCommit(acquiringSafeCommit bool) model.IndexCommit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireLocked(acquiringSafeCommit)
}

func (p *CombinedDeletionPolicy) acquireLocked(acquiringSafeCommit bool) *SnapshotIndexCommit {
	assert2(p.safeCommit != nil, "safe commit is not initialized yet")
	assert2(p.lastCommit != nil, "last commit is not initialized yet")
	snapshotting := p.lastCommit
	if acquiringSafeCommit {
		snapshotting = p.safeCommit
	}
	p.snapshottedCommits[snapshotting.Generation()]++
	p.metrics.setSnapshottedCommits(len(p.snapshottedCommits))
	return &SnapshotIndexCommit{IndexCommit: snapshotting, policy: p}
}

/*
Releases a commit acquired by AcquireIndexCommit. Returns true if the
commit is no longer referenced and is neither the safe nor the last
commit, i.e. the caller should revisit the deletion policy to clean it
up. Releasing a commit twice, or one this policy did not hand out,
returns ErrUnknownSnapshot.
*/
func (p *CombinedDeletionPolicy) ReleaseCommit(snapshotCommit model.IndexCommit) (bool, error) {
	snapshot, ok := snapshotCommit.(*SnapshotIndexCommit)
	if !ok || snapshot.policy != p {
		return false, errors.Wrapf(ErrUnknownSnapshot, "releasing commit [%v]", snapshotCommit.SegmentsFileName())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	gen := snapshot.Generation()
	count, ok := p.snapshottedCommits[gen]
	if snapshot.released || !ok {
		return false, errors.Wrapf(ErrUnknownSnapshot, "releasing commit [%v], snapshotted commits %v",
			snapshot.SegmentsFileName(), p.snapshottedCommits)
	}
	snapshot.released = true
	assert2(count > 0, "number of snapshots can not be negative [%v]", count)
	if count == 1 {
		delete(p.snapshottedCommits, gen)
	} else {
		p.snapshottedCommits[gen] = count - 1
	}
	p.metrics.setSnapshottedCommits(len(p.snapshottedCommits))
	return count == 1 && gen != p.safeCommit.Generation() && gen != p.lastCommit.Generation(), nil
}

// Checks whether the deletion policy is holding on to snapshotted
// commits.
func (p *CombinedDeletionPolicy) HasSnapshottedCommits() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshottedCommits) > 0
}

// Checks if the deletion policy can delete some index commits with
// the latest global checkpoint.
func (p *CombinedDeletionPolicy) HasUnreferencedCommits() bool {
	return p.maxSeqNoOfNextSafeCommit.Load() <= p.globalCheckpoint()
}

// Max sequence number of the commit after the safe commit, or
// math.MaxInt64 if the safe commit is the last one.
func (p *CombinedDeletionPolicy) MaxSeqNoOfNextSafeCommit() int64 {
	return p.maxSeqNoOfNextSafeCommit.Load()
}

func (p *CombinedDeletionPolicy) SafeCommit() model.IndexCommit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.safeCommit
}

func (p *CombinedDeletionPolicy) LastCommit() model.IndexCommit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCommit
}

/*
Finds a safe commit point from a list of existing commits, oldest
first, based on the supplied global checkpoint. The max sequence
number of a safe commit point is at most the global checkpoint. If
no commit qualifies, the oldest commit of the newest translog lineage
is returned.
*/
func FindSafeCommitPoint(commits []model.IndexCommit, globalCheckpoint int64) (model.IndexCommit, error) {
	if len(commits) == 0 {
		return nil, errors.New("commit list must not be empty")
	}
	keptPosition, err := indexOfKeptCommits(commits, globalCheckpoint)
	if err != nil {
		return nil, err
	}
	return commits[keptPosition], nil
}

/*
Finds the highest position of a safe commit whose max sequence number
is not greater than the global checkpoint. Commits of another
translog than the newest commit's are never safe: the scan stops at
the first of them.
*/
func indexOfKeptCommits(commits []model.IndexCommit, globalCheckpoint int64) (int, error) {
	last := commits[len(commits)-1]
	lastUserData, err := last.UserData()
	if err != nil {
		return 0, err
	}
	expectedTranslogUUID, err := translog.ReadTranslogUUID(lastUserData)
	if err != nil {
		return 0, errors.Wrapf(err, "commit %v", last.SegmentsFileName())
	}
	for i := len(commits) - 1; i >= 0; i-- {
		userData, err := commits[i].UserData()
		if err != nil {
			return 0, err
		}
		if userData[translog.TRANSLOG_UUID_KEY] != expectedTranslogUUID {
			return i + 1, nil
		}
		maxSeqNo, err := seqno.ReadSeqNo(userData, seqno.MAX_SEQ_NO)
		if err != nil {
			return 0, errors.Wrapf(err, "commit %v", commits[i].SegmentsFileName())
		}
		if maxSeqNo <= globalCheckpoint {
			return i, nil
		}
	}
	return 0, nil
}

func newFileNames(previous, current model.IndexCommit) (map[string]struct{}, error) {
	previousFiles := make(map[string]bool)
	if previous != nil {
		files, err := previous.FileNames()
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			previousFiles[file] = true
		}
	}
	files, err := current.FileNames()
	if err != nil {
		return nil, err
	}
	ans := make(map[string]struct{})
	for _, file := range files {
		if !previousFiles[file] {
			ans[file] = struct{}{}
		}
	}
	return ans, nil
}

// Returns a description of the given commit, for logging and
// debugging only.
func CommitDescription(commit model.IndexCommit) string {
	if commit == nil {
		return "CommitPoint{}"
	}
	userData, err := commit.UserData()
	if err != nil {
		return fmt.Sprintf("CommitPoint{segment[%v], userData[%v]}", commit.SegmentsFileName(), err)
	}
	return fmt.Sprintf("CommitPoint{segment[%v], userData[%v]}", commit.SegmentsFileName(), userData)
}

/*
A wrapper of an index commit that prevents it from being deleted. It
is handed out by AcquireIndexCommit and must be passed back to
ReleaseCommit exactly once.
*/
type SnapshotIndexCommit struct {
	model.IndexCommit
	policy   *CombinedDeletionPolicy
	released bool // guarded by policy.mu
}

func (c *SnapshotIndexCommit) Delete() error {
	return errors.Wrapf(ErrSnapshotDeletion, "commit %v", c.SegmentsFileName())
}

// Returns the wrapped commit.
func (c *SnapshotIndexCommit) Unwrap() model.IndexCommit { return c.IndexCommit }

func (c *SnapshotIndexCommit) String() string {
	return fmt.Sprintf("SnapshotIndexCommit(%v)", c.SegmentsFileName())
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
