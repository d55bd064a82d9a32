package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/ironsweet/esengine/core/engine"
	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/memory"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/seqno"
	"github.com/ironsweet/esengine/core/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var vocabulary = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliet", "kilo", "lima", "mike", "november", "oscar", "papa",
}

func writeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "flush a generated segment and commit it",
		Flags: []cli.Flag{
			dirFlag,
			&cli.IntFlag{Name: "docs", Value: 1000, Usage: "number of documents"},
			&cli.Int64Flag{Name: "seed", Value: 42, Usage: "random seed of the generated content"},
			&cli.BoolFlag{Name: "new-translog", Usage: "start a new translog before committing"},
		},
		Action: func(c *cli.Context) error {
			numDocs := c.Int("docs")
			if numDocs <= 0 {
				return errors.Errorf("--docs must be positive, got %v", numDocs)
			}
			dir, err := openDirectory(c)
			if err != nil {
				return err
			}
			defer dir.Close()
			return writeSegment(e, dir, c.App.Writer, numDocs, c.Int64("seed"), c.Bool("new-translog"))
		},
	}
}

// Every operation of a commit written here is acknowledged, so the
// global checkpoint follows the max sequence number of the last commit.
func writeSegment(e *env, dir store.Directory, w io.Writer, numDocs int, seed int64, newTranslog bool) error {
	var checkpoint atomic.Int64
	checkpoint.Store(seqno.NO_OPS_PERFORMED)
	last, err := index.ReadLatestCommit(dir)
	if err == nil {
		info, err := seqno.LoadSeqNoInfoFromCommit(last.UserData())
		if err != nil {
			return err
		}
		checkpoint.Store(info.MaxSeqNo)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	eng, err := engine.OpenEngine(dir, e.config, e.logger, checkpoint.Load, nil, nil)
	if err != nil {
		return err
	}
	defer eng.Close()
	if newTranslog {
		eng.StartNewTranslog()
	}

	segment, err := eng.FlushSegment(generate(numDocs, rand.New(rand.NewSource(seed))))
	if err != nil {
		return err
	}
	maxSeqNo := checkpoint.Load() + int64(numDocs)
	err = eng.Commit([]*index.SegmentCommitInfo{segment},
		seqno.CommitInfo{MaxSeqNo: maxSeqNo, LocalCheckpoint: maxSeqNo})
	if err != nil {
		return err
	}
	checkpoint.Store(maxSeqNo)
	if err = eng.RevisitIndexDeletionPolicy(); err != nil {
		return err
	}
	e.logger.WithFields(logrus.Fields{
		"segment":    segment.Info.Name,
		"docs":       numDocs,
		"max_seq_no": maxSeqNo,
		"safe":       eng.SafeCommitInfo(),
	}).Info("segment committed")
	_, err = fmt.Fprintln(w, segment.Info.Name)
	return err
}

/*
Generates numDocs documents over three fields:

  - id: a unique term per doc, docs only
  - body: words from a small vocabulary, with positions
  - annotated: like body, with offsets and occasional payloads
*/
func generate(numDocs int, r *rand.Rand) *memory.Fields {
	b := memory.NewBuilder()
	b.AddField("id", model.INDEX_OPT_DOCS_ONLY, false, true)
	b.AddField("body", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS, false, false)
	b.AddField("annotated", model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS, true, false)

	for doc := 0; doc < numDocs; doc++ {
		b.AddDoc("id", []byte(strconv.Itoa(doc)), doc, 1)

		length := 1 + r.Intn(20)
		for pos := 0; pos < length; pos++ {
			word := vocabulary[r.Intn(len(vocabulary))]
			b.AddPositions("body", []byte(word), doc, memory.Position{Position: pos})
		}
		b.SetNorm("body", doc, int64(length))

		length = 1 + r.Intn(10)
		offset := 0
		for pos := 0; pos < length; pos++ {
			word := vocabulary[r.Intn(len(vocabulary)/2)]
			p := memory.Position{Position: pos, StartOffset: offset, EndOffset: offset + len(word)}
			if r.Intn(4) == 0 {
				p.Payload = []byte{byte(r.Intn(256))}
			}
			b.AddPositions("annotated", []byte(word), doc, p)
			offset += len(word) + 1
		}
		b.SetNorm("annotated", doc, int64(length))
	}
	return b.Finish()
}
