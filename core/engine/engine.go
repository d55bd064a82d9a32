package engine

import (
	"os"
	"strconv"
	"sync"

	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/seqno"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/translog"
	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// index/engine/InternalEngine.java

// Commit user data key of the minimum sequence number soft-deleted
// documents are retained from.
const MIN_RETAINED_SEQNO = "min_retained_seq_no"

var ErrEngineClosed = errors.New("engine is closed")

/*
Owns the commits of one shard directory. Segments are flushed with
the configured postings format and committed with sequence number
and translog bookkeeping; old commits are removed by an
IndexFileDeleter driven by the CombinedDeletionPolicy.

CommitsListener callbacks run while a commit is in progress, so they
must not call back into the Engine. They may use the deletion policy
directly.
*/
type Engine struct {
	sync.Mutex
	logger         logrus.FieldLogger
	config         *Config
	directory      store.Directory
	postingsFormat spi.PostingsFormat

	translogUUID      string
	translogPolicy    *translog.DeletionPolicy
	softDeletesPolicy *SoftDeletesPolicy
	policy            *CombinedDeletionPolicy
	deleter           *index.IndexFileDeleter

	// in-memory state of the next commit
	segmentInfos *index.SegmentInfos
	closed       bool
}

/*
Opens the engine on dir. An empty directory is bootstrapped with an
empty commit that starts a new translog. Opening fails with
*InvalidSafeCommitError if the last commit is not safe for the given
global checkpoint. reg may be nil to skip metrics.
*/
func OpenEngine(dir store.Directory, cfg *Config, logger logrus.FieldLogger,
	globalCheckpoint func() int64, listener CommitsListener,
	reg prometheus.Registerer) (*Engine, error) {

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(cfg.Level())
		logger = l
	}
	format, err := spi.LoadPostingsFormat(cfg.Codec.Name)
	if err != nil {
		return nil, err
	}

	sis, err := index.ReadLatestCommit(dir)
	if errors.Is(err, os.ErrNotExist) {
		if sis, err = bootstrapNewHistory(dir); err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"action": "bootstrap",
			"commit": sis.SegmentsFileName(),
		}).Info("created empty commit")
	} else if err != nil {
		return nil, err
	}

	if cfg.Commits.VerifyChecksums {
		if err = verifyChecksums(dir, sis); err != nil {
			return nil, err
		}
	}
	userData := sis.UserData()
	translogUUID, err := translog.ReadTranslogUUID(userData)
	if err != nil {
		return nil, errors.Wrapf(err, "commit %v", sis.SegmentsFileName())
	}
	commitInfo, err := seqno.LoadSeqNoInfoFromCommit(userData)
	if err != nil {
		return nil, errors.Wrapf(err, "commit %v", sis.SegmentsFileName())
	}
	minRetainedSeqNo := commitInfo.LocalCheckpoint + 1
	if v, ok := userData[MIN_RETAINED_SEQNO]; ok {
		if minRetainedSeqNo, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, errors.Wrapf(err, "invalid %v in commit %v", MIN_RETAINED_SEQNO, sis.SegmentsFileName())
		}
	}

	e := &Engine{
		logger:         logger,
		config:         cfg,
		directory:      dir,
		postingsFormat: format,
		translogUUID:   translogUUID,
		translogPolicy: translog.NewDeletionPolicy(logger),
		segmentInfos:   sis,
	}
	var softDeletes SoftDeletesRetention
	if cfg.SoftDeletes.Enabled {
		e.softDeletesPolicy = NewSoftDeletesPolicy(logger, globalCheckpoint,
			minRetainedSeqNo, cfg.SoftDeletes.RetentionOperations, nil)
		softDeletes = e.softDeletesPolicy
	}
	e.policy = NewCombinedDeletionPolicy(logger, e.translogPolicy, softDeletes,
		globalCheckpoint, listener, WithMetrics(NewMetrics(reg)))

	e.deleter, err = index.NewIndexFileDeleter(dir, e.policy, sis, util.NewLoggingInfoStream("engine"))
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"action":      "open",
		"last_commit": sis.SegmentsFileName(),
		"safe_commit": e.policy.SafeCommit().SegmentsFileName(),
	}).Info("engine opened")
	return e, nil
}

// Writes the first commit of an empty directory.
func bootstrapNewHistory(dir store.Directory) (*index.SegmentInfos, error) {
	sis := index.NewSegmentInfos()
	userData := map[string]string{translog.TRANSLOG_UUID_KEY: translog.NewTranslogUUID()}
	seqno.CommitInfo{MaxSeqNo: seqno.NO_OPS_PERFORMED, LocalCheckpoint: seqno.NO_OPS_PERFORMED}.PutInto(userData)
	sis.SetUserData(userData)
	if err := sis.Commit(dir); err != nil {
		return nil, err
	}
	return sis, nil
}

// Reads every file of the commit to its footer and verifies its
// checksum.
func verifyChecksums(dir store.Directory, sis *index.SegmentInfos) error {
	for _, file := range sis.Files(true) {
		err := func() error {
			in, err := dir.OpenInput(file, store.IO_CONTEXT_READONCE)
			if err != nil {
				return err
			}
			_, err = codec.ChecksumEntireFile(in)
			return util.CloseWhileHandlingError(err, in)
		}()
		if err != nil {
			return errors.Wrapf(err, "verifying %v", file)
		}
	}
	return nil
}

func (e *Engine) ensureOpen() error {
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// Returns a new segment name for the next flush.
func (e *Engine) NewSegmentName() string {
	e.Lock()
	defer e.Unlock()
	return e.segmentInfos.NewSegmentName()
}

/*
Adds the given flushed segments and commits them with the given
sequence number info. If writing the commit fails, the new segments'
files are removed and the in-memory state is left unchanged.
*/
func (e *Engine) Commit(segments []*index.SegmentCommitInfo, info seqno.CommitInfo) error {
	e.Lock()
	defer e.Unlock()
	if err := e.ensureOpen(); err != nil {
		return err
	}
	next := e.segmentInfos.Clone()
	for _, segment := range segments {
		next.Add(segment)
	}
	userData := map[string]string{translog.TRANSLOG_UUID_KEY: e.translogUUID}
	info.PutInto(userData)
	if e.softDeletesPolicy != nil {
		userData[MIN_RETAINED_SEQNO] = strconv.FormatInt(e.softDeletesPolicy.MinRetainedSeqNo(), 10)
	}
	next.SetUserData(userData)

	if err := next.Commit(e.directory); err != nil {
		for _, segment := range segments {
			e.deleter.DeleteNewFiles(segment.Files()...)
		}
		return err
	}
	e.segmentInfos = next
	e.logger.WithFields(logrus.Fields{
		"action":      "commit",
		"commit":      next.SegmentsFileName(),
		"segments":    next.Size(),
		"commit_info": info,
	}).Debug("committed")
	return e.deleter.Checkpoint(next, true)
}

/*
Starts a new translog lineage: the next commit carries a new translog
UUID, so no earlier commit can be a safe commit any more.
*/
func (e *Engine) StartNewTranslog() string {
	e.Lock()
	defer e.Unlock()
	e.translogUUID = translog.NewTranslogUUID()
	return e.translogUUID
}

func (e *Engine) TranslogUUID() string {
	e.Lock()
	defer e.Unlock()
	return e.translogUUID
}

/*
Snapshots the safe commit, or the last commit if acquiringSafeCommit
is false. Its files stay on disk until release is called; calling
release more than once returns an error.
*/
func (e *Engine) AcquireIndexCommit(acquiringSafeCommit bool) (commit model.IndexCommit, release func() error, err error) {
	e.Lock()
	defer e.Unlock()
	if err = e.ensureOpen(); err != nil {
		return nil, nil, err
	}
	commit = e.policy.AcquireIndexCommit(acquiringSafeCommit)
	return commit, func() error { return e.ReleaseIndexCommit(commit) }, nil
}

func (e *Engine) AcquireSafeIndexCommit() (model.IndexCommit, func() error, error) {
	return e.AcquireIndexCommit(true)
}

func (e *Engine) AcquireLastIndexCommit() (model.IndexCommit, func() error, error) {
	return e.AcquireIndexCommit(false)
}

/*
Releases a snapshot taken by AcquireIndexCommit or handed to a
CommitsListener. If the commit became obsolete, the deletion policy is
revisited so its files are removed.
*/
func (e *Engine) ReleaseIndexCommit(commit model.IndexCommit) error {
	shouldClean, err := e.policy.ReleaseCommit(commit)
	if err != nil || !shouldClean {
		return err
	}
	e.Lock()
	defer e.Unlock()
	if e.closed {
		return nil
	}
	return e.deleter.RevisitPolicy()
}

/*
Deletes commits that became unreferenced since the global checkpoint
advanced. Cheap when there is nothing to reclaim.
*/
func (e *Engine) RevisitIndexDeletionPolicy() error {
	if !e.policy.HasUnreferencedCommits() {
		return nil
	}
	e.Lock()
	defer e.Unlock()
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.deleter.RevisitPolicy()
}

func (e *Engine) SafeCommitInfo() SafeCommitInfo { return e.policy.SafeCommitInfo() }

func (e *Engine) DeletionPolicy() *CombinedDeletionPolicy { return e.policy }

func (e *Engine) TranslogDeletionPolicy() *translog.DeletionPolicy { return e.translogPolicy }

// Returns nil if soft deletes are disabled.
func (e *Engine) SoftDeletesPolicy() *SoftDeletesPolicy { return e.softDeletesPolicy }

// Returns the live commits, oldest first.
func (e *Engine) Commits() []model.IndexCommit { return e.deleter.Commits() }

// Returns the segments of the last commit.
func (e *Engine) Segments() []*index.SegmentCommitInfo {
	e.Lock()
	defer e.Unlock()
	return append([]*index.SegmentCommitInfo(nil), e.segmentInfos.Segments...)
}

func (e *Engine) Directory() store.Directory { return e.directory }

// Closes the engine. The directory stays open and owned by the caller.
func (e *Engine) Close() error {
	e.Lock()
	defer e.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.policy.HasSnapshottedCommits() {
		e.logger.WithField("action", "close").Warn("closing engine with open commit snapshots")
	}
	return e.deleter.Close()
}
