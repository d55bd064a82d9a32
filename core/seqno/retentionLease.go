package seqno

import (
	"fmt"
	"math"
)

// index/seqno/RetentionLease.java

/*
A "shard history retention lease" (or "retention lease" for short) is
conceptually a marker containing a retaining sequence number such
that all operations with sequence number at least that retaining
sequence number will be retained for as long as the lease is held.
*/
type RetentionLease struct {
	ID string
	// all operations with sequence number at least this are retained
	RetainingSeqNo int64
	// timestamp in milliseconds of the last renewal
	Timestamp int64
	Source    string
}

func (l RetentionLease) String() string {
	return fmt.Sprintf("RetentionLease{id='%v', retainingSequenceNumber=%v, timestamp=%v, source='%v'}",
		l.ID, l.RetainingSeqNo, l.Timestamp, l.Source)
}

// Returns the smallest retaining sequence number, or math.MaxInt64
// without leases.
func MinRetainingSeqNo(leases []RetentionLease) int64 {
	min := int64(math.MaxInt64)
	for _, l := range leases {
		if l.RetainingSeqNo < min {
			min = l.RetainingSeqNo
		}
	}
	return min
}
