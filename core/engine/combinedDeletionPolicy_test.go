package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/seqno"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/translog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	T1 = "0f0e1b2a-3c4d-4e5f-8a9b-0c1d2e3f4a5b"
	T2 = "7d1c9e44-2f6a-4b80-9c3e-5a6b7c8d9e0f"
)

type fakeCommit struct {
	gen      int64
	userData map[string]string
	files    []string
	deleted  atomic.Bool
}

func newCommit(gen int64, translogUUID string, maxSeqNo, localCheckpoint int64) *fakeCommit {
	userData := map[string]string{translog.TRANSLOG_UUID_KEY: translogUUID}
	seqno.CommitInfo{MaxSeqNo: maxSeqNo, LocalCheckpoint: localCheckpoint}.PutInto(userData)
	return &fakeCommit{
		gen:      gen,
		userData: userData,
		files:    []string{fmt.Sprintf("_%v.doc", gen), "segments_" + strconv.FormatInt(gen, 36)},
	}
}

func (c *fakeCommit) SegmentsFileName() string             { return "segments_" + strconv.FormatInt(c.gen, 36) }
func (c *fakeCommit) FileNames() ([]string, error)         { return c.files, nil }
func (c *fakeCommit) Directory() store.Directory           { return nil }
func (c *fakeCommit) IsDeleted() bool                      { return c.deleted.Load() }
func (c *fakeCommit) SegmentCount() int                    { return 1 }
func (c *fakeCommit) Generation() int64                    { return c.gen }
func (c *fakeCommit) UserData() (map[string]string, error) { return c.userData, nil }
func (c *fakeCommit) String() string                       { return c.SegmentsFileName() }
func (c *fakeCommit) Delete() error {
	c.deleted.Store(true)
	return nil
}

// Commits with max seq nos 10, 20, 30, ... sharing one translog.
func commitsWithMaxSeqNos(translogUUID string, maxSeqNos ...int64) []model.IndexCommit {
	ans := make([]model.IndexCommit, len(maxSeqNos))
	for i, maxSeqNo := range maxSeqNos {
		ans[i] = newCommit(int64(i+1), translogUUID, maxSeqNo, maxSeqNo)
	}
	return ans
}

// Drops deleted commits, as the IndexFileDeleter does after a policy
// callback.
func live(commits []model.IndexCommit) []model.IndexCommit {
	var ans []model.IndexCommit
	for _, c := range commits {
		if !c.IsDeleted() {
			ans = append(ans, c)
		}
	}
	return ans
}

func generations(commits []model.IndexCommit) []int64 {
	ans := make([]int64, len(commits))
	for i, c := range commits {
		ans[i] = c.Generation()
	}
	return ans
}

type globalCheckpoint struct {
	v atomic.Int64
}

func newGlobalCheckpoint(v int64) *globalCheckpoint {
	gcp := &globalCheckpoint{}
	gcp.v.Store(v)
	return gcp
}

func (g *globalCheckpoint) get() int64  { return g.v.Load() }
func (g *globalCheckpoint) set(v int64) { g.v.Store(v) }

func docCountByGeneration(commit model.IndexCommit) (int, error) {
	return int(commit.Generation()) * 100, nil
}

func newTestPolicy(gcp *globalCheckpoint, listener CommitsListener, opts ...Option) (*CombinedDeletionPolicy, *translog.DeletionPolicy, *SoftDeletesPolicy) {
	logger, _ := test.NewNullLogger()
	translogPolicy := translog.NewDeletionPolicy(logger)
	softDeletesPolicy := NewSoftDeletesPolicy(logger, gcp.get, 0, 0, nil)
	opts = append([]Option{WithDocCountReader(docCountByGeneration)}, opts...)
	return NewCombinedDeletionPolicy(logger, translogPolicy, softDeletesPolicy, gcp.get, listener, opts...),
		translogPolicy, softDeletesPolicy
}

func TestSafeCommitBelowGlobalCheckpoint(t *testing.T) {
	gcp := newGlobalCheckpoint(25)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	policy, translogPolicy, softDeletesPolicy := newTestPolicy(gcp, nil, WithMetrics(metrics))
	commits := commitsWithMaxSeqNos(T1, 10, 20, 30)

	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, int64(2), policy.SafeCommit().Generation())
	assert.Equal(t, int64(3), policy.LastCommit().Generation())
	assert.Equal(t, int64(30), policy.MaxSeqNoOfNextSafeCommit())
	assert.True(t, commits[0].IsDeleted())
	assert.False(t, commits[1].IsDeleted())
	assert.False(t, commits[2].IsDeleted())
	assert.Equal(t, SafeCommitInfo{LocalCheckpoint: 20, DocCount: 200}, policy.SafeCommitInfo())
	assert.Equal(t, int64(20), translogPolicy.LocalCheckpointOfSafeCommit())
	assert.Equal(t, int64(21), softDeletesPolicy.MinRetainedSeqNo())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.commitsDeleted))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.commitsRetained))
	assert.Equal(t, float64(20), testutil.ToFloat64(metrics.safeCommitLocalCheckpoint))

	assert.False(t, policy.HasUnreferencedCommits())
	gcp.set(30)
	assert.True(t, policy.HasUnreferencedCommits())
	require.NoError(t, policy.OnCommit(live(commits)))
	assert.Equal(t, []int64{3}, generations(live(commits)))
	assert.Equal(t, int64(math.MaxInt64), policy.MaxSeqNoOfNextSafeCommit())
	assert.False(t, policy.HasUnreferencedCommits())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.commitsDeleted))
}

func TestSafeCommitIsMonotonic(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("seed=%v", seed)
	rnd := rand.New(rand.NewSource(seed))

	gcp := newGlobalCheckpoint(seqno.NO_OPS_PERFORMED)
	policy, _, _ := newTestPolicy(gcp, nil)
	commits := []model.IndexCommit{newCommit(1, T1, seqno.NO_OPS_PERFORMED, seqno.NO_OPS_PERFORMED)}
	maxSeqNo := seqno.NO_OPS_PERFORMED
	lastSafeGen := int64(0)
	for gen := int64(2); gen < 200; gen++ {
		maxSeqNo += 1 + rnd.Int63n(10)
		commits = append(commits, newCommit(gen, T1, maxSeqNo, maxSeqNo))
		if next := gcp.get() + rnd.Int63n(15); next <= maxSeqNo {
			gcp.set(next)
		}

		require.NoError(t, policy.OnCommit(commits))
		safe := policy.SafeCommit()
		userData, err := safe.UserData()
		require.NoError(t, err)
		safeMaxSeqNo, err := seqno.ReadSeqNo(userData, seqno.MAX_SEQ_NO)
		require.NoError(t, err)
		require.LessOrEqual(t, safeMaxSeqNo, gcp.get(), "gen=%v", gen)
		require.GreaterOrEqual(t, safe.Generation(), lastSafeGen, "gen=%v", gen)
		lastSafeGen = safe.Generation()

		commits = live(commits)
		require.Equal(t, lastSafeGen, commits[0].Generation(), "everything below the safe commit is deleted")
	}
}

func TestSnapshottedCommitIsRetained(t *testing.T) {
	gcp := newGlobalCheckpoint(10)
	policy, _, _ := newTestPolicy(gcp, nil)
	commits := commitsWithMaxSeqNos(T1, 10, 20)
	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, int64(1), policy.SafeCommit().Generation())

	snapshot := policy.AcquireIndexCommit(true)
	assert.Equal(t, int64(1), snapshot.Generation())
	assert.True(t, policy.HasSnapshottedCommits())
	err := snapshot.Delete()
	assert.True(t, errors.Is(err, ErrSnapshotDeletion), "got %v", err)

	// the snapshot outlives the safe commit moving ahead
	gcp.set(30)
	commits = append(commits, newCommit(3, T1, 30, 30))
	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, int64(3), policy.SafeCommit().Generation())
	assert.False(t, commits[0].IsDeleted())
	assert.True(t, commits[1].IsDeleted())
	require.NoError(t, policy.OnCommit(live(commits)))
	assert.Equal(t, []int64{1, 3}, generations(live(commits)))

	shouldClean, err := policy.ReleaseCommit(snapshot)
	require.NoError(t, err)
	assert.True(t, shouldClean)
	assert.False(t, policy.HasSnapshottedCommits())
	require.NoError(t, policy.OnCommit(live(commits)))
	assert.Equal(t, []int64{3}, generations(live(commits)))

	_, err = policy.ReleaseCommit(snapshot)
	assert.True(t, errors.Is(err, ErrUnknownSnapshot), "got %v", err)
	_, err = policy.ReleaseCommit(commits[2])
	assert.True(t, errors.Is(err, ErrUnknownSnapshot), "got %v", err)
}

func TestReleaseOfCurrentCommitNeedsNoCleanup(t *testing.T) {
	gcp := newGlobalCheckpoint(10)
	policy, _, _ := newTestPolicy(gcp, nil)
	commits := commitsWithMaxSeqNos(T1, 10, 20)
	require.NoError(t, policy.OnCommit(commits))

	last1 := policy.AcquireIndexCommit(false)
	last2 := policy.AcquireIndexCommit(false)
	safe := policy.AcquireIndexCommit(true)
	assert.Equal(t, int64(2), last1.Generation())
	assert.Equal(t, int64(1), safe.Generation())

	shouldClean, err := policy.ReleaseCommit(last1)
	require.NoError(t, err)
	assert.False(t, shouldClean, "still referenced")
	shouldClean, err = policy.ReleaseCommit(last2)
	require.NoError(t, err)
	assert.False(t, shouldClean, "still the last commit")
	shouldClean, err = policy.ReleaseCommit(safe)
	require.NoError(t, err)
	assert.False(t, shouldClean, "still the safe commit")

	other, _, _ := newTestPolicy(gcp, nil)
	require.NoError(t, other.OnCommit(commits))
	_, err = policy.ReleaseCommit(other.AcquireIndexCommit(true))
	assert.True(t, errors.Is(err, ErrUnknownSnapshot), "got %v", err)
}

func TestTranslogUUIDBoundary(t *testing.T) {
	commits := []model.IndexCommit{
		newCommit(1, T1, 5, 5),
		newCommit(2, T1, 10, 10),
		newCommit(3, T2, 50, 50),
		newCommit(4, T2, 60, 60),
	}
	for _, c := range []struct {
		globalCheckpoint int64
		safeGen          int64
	}{
		{100, 4},
		{55, 3},
		{20, 3}, // commit 2 has a lower max seq no but another translog
		{-1, 3},
	} {
		safe, err := FindSafeCommitPoint(commits, c.globalCheckpoint)
		require.NoError(t, err)
		assert.Equal(t, c.safeGen, safe.Generation(), "global checkpoint %v", c.globalCheckpoint)
	}

	gcp := newGlobalCheckpoint(20)
	policy, _, _ := newTestPolicy(gcp, nil)
	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, int64(3), policy.SafeCommit().Generation())
	assert.Equal(t, []int64{3, 4}, generations(live(commits)))

	_, err := FindSafeCommitPoint(nil, 0)
	assert.Error(t, err)
}

func TestMissingTranslogUUIDFailsClassification(t *testing.T) {
	policy, _, _ := newTestPolicy(newGlobalCheckpoint(100), nil)
	last := newCommit(2, T1, 20, 20)
	delete(last.userData, translog.TRANSLOG_UUID_KEY)
	commits := []model.IndexCommit{newCommit(1, T1, 10, 10), last}
	assert.Error(t, policy.OnCommit(commits))
	assert.False(t, commits[0].IsDeleted())

	broken := newCommit(2, T1, 20, 20)
	broken.userData[seqno.MAX_SEQ_NO] = "twenty"
	assert.Error(t, policy.OnCommit([]model.IndexCommit{newCommit(1, T1, 10, 10), broken}))
}

func TestOnInitRequiresSafeLastCommit(t *testing.T) {
	gcp := newGlobalCheckpoint(20)
	policy, _, _ := newTestPolicy(gcp, nil)
	err := policy.OnInit(commitsWithMaxSeqNos(T1, 10, 30))
	var invalid *InvalidSafeCommitError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, int64(20), invalid.GlobalCheckpoint)
	assert.Equal(t, seqno.CommitInfo{MaxSeqNo: 30, LocalCheckpoint: 30}, invalid.LastCommitInfo)
	assert.Equal(t, seqno.CommitInfo{MaxSeqNo: 10, LocalCheckpoint: 10}, invalid.SafeCommitInfo)
	assert.Contains(t, err.Error(), "last commit isn't safe")

	gcp.set(30)
	policy, _, _ = newTestPolicy(gcp, nil)
	commits := commitsWithMaxSeqNos(T1, 10, 30)
	require.NoError(t, policy.OnInit(commits))
	assert.True(t, commits[0].IsDeleted())

	assert.Error(t, policy.OnInit(nil))
}

func TestSafeCommitInfoFallback(t *testing.T) {
	logger, hook := test.NewNullLogger()
	gcp := newGlobalCheckpoint(100)
	var reads atomic.Int32
	failDocCount := false
	policy := NewCombinedDeletionPolicy(logger, nil, nil, gcp.get, nil,
		WithDocCountReader(func(commit model.IndexCommit) (int, error) {
			reads.Add(1)
			if failDocCount {
				return 0, errors.New("unreadable")
			}
			return docCountByGeneration(commit)
		}))

	commits := commitsWithMaxSeqNos(T1, 10)
	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, SafeCommitInfo{LocalCheckpoint: 10, DocCount: 100}, policy.SafeCommitInfo())
	assert.Equal(t, int32(1), reads.Load())

	// unchanged local checkpoint reuses the cached info
	commits = append(commits, newCommit(2, T1, 10, 10))
	require.NoError(t, policy.OnCommit(commits))
	assert.Equal(t, SafeCommitInfo{LocalCheckpoint: 10, DocCount: 100}, policy.SafeCommitInfo())
	assert.Equal(t, int32(1), reads.Load())

	hook.Reset()
	broken := newCommit(3, T1, 15, 15)
	delete(broken.userData, seqno.LOCAL_CHECKPOINT_KEY)
	require.NoError(t, policy.OnCommit(append(live(commits), broken)))
	assert.Equal(t, int64(3), policy.SafeCommit().Generation())
	assert.Equal(t, SafeCommitInfo{LocalCheckpoint: 10, DocCount: 100}, policy.SafeCommitInfo())
	require.NotEmpty(t, hook.AllEntries())
	entry := hook.AllEntries()[0]
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.True(t, strings.HasPrefix(entry.Message, "failed to get the local checkpoint"), entry.Message)

	failDocCount = true
	require.NoError(t, policy.OnCommit([]model.IndexCommit{broken, newCommit(4, T1, 40, 40)}))
	assert.Equal(t, SafeCommitInfo{LocalCheckpoint: 40, DocCount: 100}, policy.SafeCommitInfo())
	assert.Equal(t, "failed to get the total docs from the safe commit; use the total docs from the previous safe commit",
		hook.LastEntry().Message)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRetentionRegressionFailsCommit(t *testing.T) {
	gcp := newGlobalCheckpoint(100)
	policy, translogPolicy, _ := newTestPolicy(gcp, nil)
	require.NoError(t, translogPolicy.SetLocalCheckpointOfSafeCommit(50))
	commits := commitsWithMaxSeqNos(T1, 10, 20)
	err := policy.OnCommit(commits)
	assert.True(t, errors.Is(err, translog.ErrCheckpointRegression), "got %v", err)
	assert.False(t, commits[0].IsDeleted(), "no commit is deleted when retention can't be pinned")
}

type recordingListener struct {
	policy   *CombinedDeletionPolicy
	acquired []int64
	newFiles []map[string]struct{}
	deleted  []int64
}

func (l *recordingListener) OnNewAcquiredCommit(commit model.IndexCommit, newFiles map[string]struct{}) {
	l.acquired = append(l.acquired, commit.Generation())
	l.newFiles = append(l.newFiles, newFiles)
	// calling back into the policy must not deadlock
	if !l.policy.HasSnapshottedCommits() {
		panic("the new commit is not snapshotted")
	}
	if _, err := l.policy.ReleaseCommit(commit); err != nil {
		panic(err)
	}
}

func (l *recordingListener) OnDeletedCommit(commit model.IndexCommit) {
	l.deleted = append(l.deleted, commit.Generation())
}

func TestCommitsListener(t *testing.T) {
	gcp := newGlobalCheckpoint(10)
	listener := &recordingListener{}
	policy, _, _ := newTestPolicy(gcp, listener)
	listener.policy = policy

	c1 := newCommit(1, T1, 10, 10)
	require.NoError(t, policy.OnCommit([]model.IndexCommit{c1}))
	assert.Equal(t, []int64{1}, listener.acquired)
	assert.Equal(t, map[string]struct{}{"_1.doc": {}, "segments_1": {}}, listener.newFiles[0])

	c2 := newCommit(2, T1, 20, 20)
	c2.files = append(c2.files, "_1.doc")
	gcp.set(20)
	require.NoError(t, policy.OnCommit([]model.IndexCommit{c1, c2}))
	assert.Equal(t, []int64{1, 2}, listener.acquired)
	assert.Equal(t, map[string]struct{}{"_2.doc": {}, "segments_2": {}}, listener.newFiles[1])
	assert.Equal(t, []int64{1}, listener.deleted)

	// revisiting without a new commit notifies nothing
	require.NoError(t, policy.OnCommit([]model.IndexCommit{c2}))
	assert.Equal(t, []int64{1, 2}, listener.acquired)
	assert.Equal(t, []int64{1}, listener.deleted)
	assert.False(t, policy.HasSnapshottedCommits())
}

func TestConcurrentAcquireAndRelease(t *testing.T) {
	gcp := newGlobalCheckpoint(0)
	policy, _, _ := newTestPolicy(gcp, nil)
	var mu sync.Mutex
	commits := []model.IndexCommit{newCommit(1, T1, 0, 0)}
	require.NoError(t, policy.OnCommit(commits))

	var g errgroup.Group
	var done atomic.Bool
	g.Go(func() error {
		defer done.Store(true)
		for gen := int64(2); gen <= 300; gen++ {
			mu.Lock()
			commits = append(live(commits), newCommit(gen, T1, gen*10, gen*10))
			current := commits
			mu.Unlock()
			if gen%3 == 0 {
				gcp.set(gen * 10)
			}
			if err := policy.OnCommit(current); err != nil {
				return err
			}
		}
		return nil
	})
	for i := 0; i < 8; i++ {
		safe := i%2 == 0
		g.Go(func() error {
			for !done.Load() {
				snapshot := policy.AcquireIndexCommit(safe)
				if snapshot.IsDeleted() {
					return errors.Errorf("acquired deleted commit %v", snapshot.Generation())
				}
				time.Sleep(time.Microsecond)
				if snapshot.IsDeleted() {
					return errors.Errorf("snapshotted commit %v was deleted", snapshot.Generation())
				}
				if _, err := policy.ReleaseCommit(snapshot); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.False(t, policy.HasSnapshottedCommits())

	require.NoError(t, policy.OnCommit(live(commits)))
	assert.Equal(t, int64(300), policy.LastCommit().Generation())
	assert.Equal(t, policy.SafeCommit().Generation(), live(commits)[0].Generation())
}

func TestCommitDescription(t *testing.T) {
	c := newCommit(10, T1, 5, 4)
	desc := CommitDescription(c)
	assert.True(t, strings.HasPrefix(desc, "CommitPoint{segment[segments_a], userData[map["), desc)
	assert.Contains(t, desc, "max_seq_no:5")
	assert.Equal(t, "CommitPoint{}", CommitDescription(nil))
}

func TestPolicyString(t *testing.T) {
	gcp := newGlobalCheckpoint(10)
	policy, _, _ := newTestPolicy(gcp, nil)
	assert.Equal(t, "CombinedDeletionPolicy{safeCommit=none, lastCommit=none, snapshottedCommits=0}", policy.String())

	require.NoError(t, policy.OnCommit(commitsWithMaxSeqNos(T1, 5, 20)))
	policy.AcquireIndexCommit(true)
	assert.Equal(t, "CombinedDeletionPolicy{safeCommit=segments_1, lastCommit=segments_2, snapshottedCommits=1}",
		fmt.Sprintf("%v", policy))
}
