package engine

import (
	"fmt"
	"sync"

	"github.com/ironsweet/esengine/core/seqno"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// index/engine/SoftDeletesPolicy.java

/*
Controls how long soft-deleted documents are kept: every operation
above the local checkpoint of the safe commit, the last
retentionOperations operations below the global checkpoint and
everything held by a retention lease.
*/
type SoftDeletesPolicy struct {
	sync.Mutex
	logger           logrus.FieldLogger
	globalCheckpoint func() int64
	retentionLeases  func() []seqno.RetentionLease

	localCheckpointOfSafeCommit int64
	// locks that prevent the retained sequence number from advancing
	retentionLockCount  int
	retentionOperations int64
	// the minimum sequence number to retain; never goes backwards
	minRetainedSeqNo int64
}

func NewSoftDeletesPolicy(logger logrus.FieldLogger, globalCheckpoint func() int64,
	minRetainedSeqNo, retentionOperations int64,
	retentionLeases func() []seqno.RetentionLease) *SoftDeletesPolicy {

	if retentionLeases == nil {
		retentionLeases = func() []seqno.RetentionLease { return nil }
	}
	return &SoftDeletesPolicy{
		logger:                      logger,
		globalCheckpoint:            globalCheckpoint,
		retentionLeases:             retentionLeases,
		localCheckpointOfSafeCommit: seqno.NO_OPS_PERFORMED,
		retentionOperations:         retentionOperations,
		minRetainedSeqNo:            minRetainedSeqNo,
	}
}

// Updates the number of soft-deleted operations to retain.
func (p *SoftDeletesPolicy) SetRetentionOperations(retentionOperations int64) {
	p.Lock()
	defer p.Unlock()
	p.retentionOperations = retentionOperations
}

// Sets the local checkpoint of the current safe commit.
func (p *SoftDeletesPolicy) SetLocalCheckpointOfSafeCommit(newCheckpoint int64) error {
	p.Lock()
	defer p.Unlock()
	if newCheckpoint < p.localCheckpointOfSafeCommit {
		return errors.Errorf("local checkpoint can't go backwards; new checkpoint [%v], current checkpoint [%v]",
			newCheckpoint, p.localCheckpointOfSafeCommit)
	}
	p.localCheckpointOfSafeCommit = newCheckpoint
	return nil
}

/*
Acquires a lock on soft-deleted documents to prevent them from being
cleaned up by merges. The returned function releases the lock;
calling it more than once has no further effect.
*/
func (p *SoftDeletesPolicy) AcquireRetentionLock() func() {
	p.Lock()
	defer p.Unlock()
	p.retentionLockCount++
	var once sync.Once
	return func() {
		once.Do(p.releaseRetentionLock)
	}
}

func (p *SoftDeletesPolicy) releaseRetentionLock() {
	p.Lock()
	defer p.Unlock()
	if p.retentionLockCount <= 0 {
		panic(fmt.Sprintf("invalid number of retention locks [%v]", p.retentionLockCount))
	}
	p.retentionLockCount--
}

/*
Returns the minimum sequence number that soft-deleted documents must
be kept from. While a retention lock is held the value does not move.
*/
func (p *SoftDeletesPolicy) MinRetainedSeqNo() int64 {
	p.Lock()
	defer p.Unlock()
	if p.retentionLockCount == 0 {
		minByLeases := seqno.MinRetainingSeqNo(p.retentionLeases())
		minForQueryingChanges := min(1+p.globalCheckpoint()-p.retentionOperations, minByLeases)
		minToRetain := min(minForQueryingChanges, 1+p.localCheckpointOfSafeCommit)
		if minToRetain > p.minRetainedSeqNo {
			if p.logger != nil {
				p.logger.WithFields(logrus.Fields{
					"action":       "soft_deletes_retention",
					"previous_min": p.minRetainedSeqNo,
					"new_min":      minToRetain,
				}).Debug("advanced minimum retained sequence number")
			}
			p.minRetainedSeqNo = minToRetain
		}
	}
	return p.minRetainedSeqNo
}
