package index

import (
	"github.com/ironsweet/esengine/core/index/model"
)

// index/IndexDeletionPolicy.java

/*
Expert: policy for deletion of stale index commits.

Implement this interface, and pass it to NewIndexFileDeleter, to
customize when older point-in-time commits are deleted from the index
directory. The default deletion policy is
KeepOnlyLastCommitDeletionPolicy, which always removes old commits as
soon as a new commit is done.

Policies delete a commit by calling its Delete() method. The deleter
removes the files of deleted commits once the callback returns, so a
policy never performs file I/O itself.
*/
type IndexDeletionPolicy interface {
	/*
		This is called once when the deleter is first instantiated to give
		the policy a chance to remove old commit points.

		The commits are ordered by generation, oldest first. The last
		commit is the most recent one, i.e. the "front index state". Be
		careful not to delete it, unless you know for sure what you are
		doing, and unless you can afford to lose the index content while
		doing that.
	*/
	OnInit(commits []model.IndexCommit) error
	/*
		This is called each time a commit completes. This gives the policy
		a chance to remove old commit points with each commit.

		It may also be called again without a new commit, to let the
		policy reconsider commits it kept before (see
		IndexFileDeleter.RevisitPolicy).
	*/
	OnCommit(commits []model.IndexCommit) error
}

// index/NoDeletionPolicy.java

// An IndexDeletionPolicy which keeps all index commits around, never
// deleting them.
type NoDeletionPolicy bool

func (p NoDeletionPolicy) OnCommit(commits []model.IndexCommit) error { return nil }
func (p NoDeletionPolicy) OnInit(commits []model.IndexCommit) error   { return nil }
func (p NoDeletionPolicy) String() string                             { return "NoDeletionPolicy" }

const NO_DELETION_POLICY = NoDeletionPolicy(true)

// index/KeepOnlyLastCommitDeletionPolicy.java

/*
This IndexDeletionPolicy implementation that keeps only the most
recent commit and immediately removes all prior commits after a new
commit is done. This is the default deletion policy.
*/
type KeepOnlyLastCommitDeletionPolicy bool

// Deletes all commits except the most recent one.
func (p KeepOnlyLastCommitDeletionPolicy) OnInit(commits []model.IndexCommit) error {
	return p.OnCommit(commits)
}

// Deletes all commits except the most recent one.
func (p KeepOnlyLastCommitDeletionPolicy) OnCommit(commits []model.IndexCommit) error {
	// Note that len(commits) should normally be 2 (if not called by
	// OnInit above).
	for i, limit := 0, len(commits); i < limit-1; i++ {
		if err := commits[i].Delete(); err != nil {
			return err
		}
	}
	return nil
}

func (p KeepOnlyLastCommitDeletionPolicy) String() string { return "KeepOnlyLastCommitDeletionPolicy" }

const DEFAULT_DELETION_POLICY = KeepOnlyLastCommitDeletionPolicy(true)
