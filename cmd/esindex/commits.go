package main

import (
	"fmt"
	"io"

	"github.com/ironsweet/esengine/core/engine"
	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/seqno"
	"github.com/ironsweet/esengine/core/translog"
	"github.com/urfave/cli/v2"
)

func commitsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "commits",
		Usage: "list the commits of a directory and mark the safe one",
		Flags: []cli.Flag{
			dirFlag,
			&cli.Int64Flag{
				Name:  "global-checkpoint",
				Value: seqno.UNASSIGNED_SEQ_NO,
				Usage: "global checkpoint to pick the safe commit with; defaults to the last commit's max seq no",
			},
		},
		Action: func(c *cli.Context) error {
			dir, err := openDirectory(c)
			if err != nil {
				return err
			}
			defer dir.Close()
			commits, err := index.ListCommits(dir)
			if err != nil {
				return err
			}
			globalCheckpoint := c.Int64("global-checkpoint")
			if globalCheckpoint == seqno.UNASSIGNED_SEQ_NO {
				userData, err := commits[len(commits)-1].UserData()
				if err != nil {
					return err
				}
				if globalCheckpoint, err = seqno.ReadSeqNo(userData, seqno.MAX_SEQ_NO); err != nil {
					return err
				}
			}
			safe, err := engine.FindSafeCommitPoint(commits, globalCheckpoint)
			if err != nil {
				return err
			}
			e.logger.WithField("global_checkpoint", globalCheckpoint).Debug("listing commits")
			return printCommits(c.App.Writer, commits, safe)
		},
	}
}

func printCommits(w io.Writer, commits []model.IndexCommit, safe model.IndexCommit) error {
	for _, commit := range commits {
		userData, err := commit.UserData()
		if err != nil {
			return err
		}
		info, err := seqno.LoadSeqNoInfoFromCommit(userData)
		if err != nil {
			return err
		}
		docs, err := index.ReadCommitDocCount(commit)
		if err != nil {
			return err
		}
		mark := " "
		if commit.Generation() == safe.Generation() {
			mark = "*"
		}
		fmt.Fprintf(w, "%v %v segments=%v docs=%v %v translog=%v\n", mark, commit.SegmentsFileName(),
			commit.SegmentCount(), docs, info, userData[translog.TRANSLOG_UUID_KEY])
	}
	return nil
}
