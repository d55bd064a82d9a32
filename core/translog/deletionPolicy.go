package translog

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// index/translog/TranslogDeletionPolicy.java

var ErrCheckpointRegression = errors.New("local checkpoint of the safe commit can't go backwards")

/*
Decides which translog generations are still needed. A generation is
kept while it may hold operations above the local checkpoint of the
safe commit, or while a reader holds a lock on it.
*/
type DeletionPolicy struct {
	sync.Mutex
	logger logrus.FieldLogger

	// translog generation -> number of locks
	translogRefCounts           map[int64]int
	localCheckpointOfSafeCommit int64
}

func NewDeletionPolicy(logger logrus.FieldLogger) *DeletionPolicy {
	return &DeletionPolicy{
		logger:                      logger,
		translogRefCounts:           make(map[int64]int),
		localCheckpointOfSafeCommit: -1,
	}
}

// Moves the retention floor. Returns ErrCheckpointRegression if the
// new checkpoint is below the current one.
func (p *DeletionPolicy) SetLocalCheckpointOfSafeCommit(newCheckpoint int64) error {
	p.Lock()
	defer p.Unlock()
	if newCheckpoint < p.localCheckpointOfSafeCommit {
		return errors.Wrapf(ErrCheckpointRegression, "current [%v], new [%v]",
			p.localCheckpointOfSafeCommit, newCheckpoint)
	}
	p.localCheckpointOfSafeCommit = newCheckpoint
	return nil
}

func (p *DeletionPolicy) LocalCheckpointOfSafeCommit() int64 {
	p.Lock()
	defer p.Unlock()
	return p.localCheckpointOfSafeCommit
}

/*
Acquires a lock on the given generation, retaining it and all newer
ones. The returned function releases the lock; calling it twice
panics.
*/
func (p *DeletionPolicy) AcquireTranslogGen(translogGen int64) func() {
	p.Lock()
	defer p.Unlock()
	p.translogRefCounts[translogGen]++
	released := false
	return func() {
		p.Lock()
		defer p.Unlock()
		if released {
			panic(fmt.Sprintf("translog generation %v was released twice", translogGen))
		}
		released = true
		p.releaseTranslogGen(translogGen)
	}
}

func (p *DeletionPolicy) releaseTranslogGen(translogGen int64) {
	count, ok := p.translogRefCounts[translogGen]
	if !ok || count <= 0 {
		panic(fmt.Sprintf("translog generation %v was not acquired", translogGen))
	}
	if count == 1 {
		delete(p.translogRefCounts, translogGen)
	} else {
		p.translogRefCounts[translogGen] = count - 1
	}
}

/*
Returns the minimum translog generation that is still required by
the locks (via AcquireTranslogGen) and by the safe commit. readers are
the closed generations, oldest first, and currentGen is the generation
being written.
*/
func (p *DeletionPolicy) MinTranslogGenRequired(readers []Reader, currentGen int64) int64 {
	p.Lock()
	defer p.Unlock()
	minByLocks := p.minTranslogGenRequiredByLocks()
	minByCheckpoint := currentGen
	for _, reader := range readers {
		if reader.MaxSeqNo() > p.localCheckpointOfSafeCommit {
			minByCheckpoint = reader.Generation()
			break
		}
	}
	min := minByCheckpoint
	if minByLocks < min {
		min = minByLocks
	}
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"action":             "translog_retention",
			"min_by_locks":       minByLocks,
			"min_by_checkpoint":  minByCheckpoint,
			"local_checkpoint":   p.localCheckpointOfSafeCommit,
			"current_generation": currentGen,
		}).Debug("computed minimum required translog generation")
	}
	return min
}

func (p *DeletionPolicy) minTranslogGenRequiredByLocks() int64 {
	min := int64(math.MaxInt64)
	for gen := range p.translogRefCounts {
		if gen < min {
			min = gen
		}
	}
	return min
}

// Returns the number of locks held on the given generation.
func (p *DeletionPolicy) TranslogRefCount(gen int64) int {
	p.Lock()
	defer p.Unlock()
	return p.translogRefCounts[gen]
}
