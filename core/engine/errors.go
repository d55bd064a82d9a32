package engine

import (
	"fmt"

	"github.com/ironsweet/esengine/core/seqno"
	"github.com/pkg/errors"
)

var (
	ErrSnapshotDeletion = errors.New("a snapshot commit does not support deletion")
	ErrUnknownSnapshot  = errors.New("commit was not acquired from this deletion policy")
)

/*
Returned when the engine is opened but its last commit is not safe,
i.e. it may hold operations above the global checkpoint. The shard
must not be opened from such a commit.
*/
type InvalidSafeCommitError struct {
	GlobalCheckpoint int64
	LastCommitInfo   seqno.CommitInfo
	SafeCommitInfo   seqno.CommitInfo
}

func (e *InvalidSafeCommitError) Error() string {
	return fmt.Sprintf("engine is opened, but the last commit isn't safe. Global checkpoint [%v], seqNo in last commit [%v], seqNos in safe commit [%v]",
		e.GlobalCheckpoint, e.LastCommitInfo, e.SafeCommitInfo)
}
