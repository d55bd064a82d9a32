package translog

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// index/translog/Translog.java

// Commit user data key of the UUID of the translog a commit belongs to.
const TRANSLOG_UUID_KEY = "translog_uuid"

// Creates the UUID of a new translog lineage.
func NewTranslogUUID() string {
	return uuid.New().String()
}

// Reads the translog UUID a commit belongs to.
func ReadTranslogUUID(userData map[string]string) (string, error) {
	v, ok := userData[TRANSLOG_UUID_KEY]
	if !ok || v == "" {
		return "", errors.Errorf("commit user data has no %v", TRANSLOG_UUID_KEY)
	}
	if _, err := uuid.Parse(v); err != nil {
		return "", errors.Wrapf(err, "invalid %v in commit user data", TRANSLOG_UUID_KEY)
	}
	return v, nil
}

// A translog generation as seen by the retention policy.
type Reader interface {
	Generation() int64
	// Highest sequence number of the operations in this generation, or
	// seqno.NO_OPS_PERFORMED if it holds none.
	MaxSeqNo() int64
}

// The checkpoint of a closed translog generation.
type Checkpoint struct {
	Gen    int64
	MaxSeq int64
	MinSeq int64
	NumOps int
	Offset int64
}

func (c Checkpoint) Generation() int64 { return c.Gen }
func (c Checkpoint) MaxSeqNo() int64   { return c.MaxSeq }
