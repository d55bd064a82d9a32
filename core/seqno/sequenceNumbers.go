package seqno

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// index/seqno/SequenceNumbers.java

const (
	// Commit user data key of the local checkpoint
	LOCAL_CHECKPOINT_KEY = "local_checkpoint"
	// Commit user data key of the highest sequence number in the commit
	MAX_SEQ_NO = "max_seq_no"

	// Sequence number of an operation that was not assigned one yet.
	UNASSIGNED_SEQ_NO = int64(-2)
	// Sequence number of a shard on which no operation was performed.
	NO_OPS_PERFORMED = int64(-1)
)

// The sequence number bookkeeping stored in a commit.
type CommitInfo struct {
	MaxSeqNo        int64
	LocalCheckpoint int64
}

func (ci CommitInfo) String() string {
	return fmt.Sprintf("CommitInfo{maxSeqNo=%v, localCheckpoint=%v}", ci.MaxSeqNo, ci.LocalCheckpoint)
}

/*
Reads the sequence number info from commit user data. Missing keys
mean the commit predates sequence numbers and map to
NO_OPS_PERFORMED; present but malformed values are errors.
*/
func LoadSeqNoInfoFromCommit(userData map[string]string) (CommitInfo, error) {
	info := CommitInfo{MaxSeqNo: NO_OPS_PERFORMED, LocalCheckpoint: NO_OPS_PERFORMED}
	if v, ok := userData[MAX_SEQ_NO]; ok {
		seqNo, err := parseSeqNo(MAX_SEQ_NO, v)
		if err != nil {
			return info, err
		}
		info.MaxSeqNo = seqNo
	}
	if v, ok := userData[LOCAL_CHECKPOINT_KEY]; ok {
		seqNo, err := parseSeqNo(LOCAL_CHECKPOINT_KEY, v)
		if err != nil {
			return info, err
		}
		info.LocalCheckpoint = seqNo
	}
	return info, nil
}

// Reads a mandatory sequence number from commit user data.
func ReadSeqNo(userData map[string]string, key string) (int64, error) {
	v, ok := userData[key]
	if !ok {
		return 0, errors.Errorf("commit user data has no %v", key)
	}
	return parseSeqNo(key, v)
}

func parseSeqNo(key, v string) (int64, error) {
	seqNo, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %v in commit user data", key)
	}
	if seqNo < NO_OPS_PERFORMED {
		return 0, errors.Errorf("invalid %v in commit user data: %v", key, seqNo)
	}
	return seqNo, nil
}

// Writes the sequence number bookkeeping into commit user data.
func (ci CommitInfo) PutInto(userData map[string]string) {
	userData[MAX_SEQ_NO] = strconv.FormatInt(ci.MaxSeqNo, 10)
	userData[LOCAL_CHECKPOINT_KEY] = strconv.FormatInt(ci.LocalCheckpoint, 10)
}
