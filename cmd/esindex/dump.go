package main

import (
	"fmt"
	"io"

	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/engine"
	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func dumpCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "print the terms and postings of the segments of the last commit",
		Flags: []cli.Flag{
			dirFlag,
			&cli.StringFlag{Name: "segment", Usage: "only dump the segment `NAME`"},
			&cli.StringFlag{Name: "field", Usage: "only dump the field `NAME`"},
			&cli.BoolFlag{Name: "positions", Usage: "print positions, offsets and payloads"},
		},
		Action: func(c *cli.Context) error {
			dir, err := openDirectory(c)
			if err != nil {
				return err
			}
			defer dir.Close()
			sis, err := index.ReadLatestCommit(dir)
			if err != nil {
				return err
			}
			d := &dumper{w: c.App.Writer, field: c.String("field"), positions: c.Bool("positions")}
			found := false
			for _, segment := range sis.Segments {
				if name := c.String("segment"); name != "" && name != segment.Info.Name {
					continue
				}
				found = true
				if err = d.dumpSegment(segment); err != nil {
					return err
				}
			}
			if !found && c.String("segment") != "" {
				return errors.Errorf("segment %v is not in commit %v", c.String("segment"), sis.SegmentsFileName())
			}
			return nil
		},
	}
}

type dumper struct {
	w         io.Writer
	field     string
	positions bool
}

func (d *dumper) dumpSegment(segment *index.SegmentCommitInfo) (err error) {
	producer, infos, err := engine.OpenSegment(segment)
	if err != nil {
		return err
	}
	defer func() { err = util.CloseWhileHandlingError(err, producer) }()

	fmt.Fprintf(d.w, "segment %v maxDoc=%v codec=%v\n", segment.Info.Name, segment.Info.MaxDoc(), segment.Info.Codec())
	for _, name := range producer.Names() {
		if d.field != "" && d.field != name {
			continue
		}
		terms, err := producer.Terms(name)
		if err != nil {
			return err
		}
		if err = d.dumpField(infos.FieldInfoByName(name), terms); err != nil {
			return err
		}
	}
	return nil
}

func (d *dumper) dumpField(fi *model.FieldInfo, terms spi.Terms) error {
	fmt.Fprintf(d.w, "  field %v options=%v terms=%v docCount=%v sumDocFreq=%v sumTotalTermFreq=%v\n",
		fi.Name, fi.IndexOptions(), terms.Size(), terms.DocCount(), terms.SumDocFreq(), terms.SumTotalTermFreq())
	te, err := terms.Iterator()
	if err != nil {
		return err
	}
	flags := model.POSTINGS_FLAG_FREQS
	if d.positions {
		flags = model.POSTINGS_FLAG_ALL
	}
	for {
		term, err := te.Next()
		if err != nil {
			return err
		}
		if term == nil {
			return nil
		}
		docFreq, err := te.DocFreq()
		if err != nil {
			return err
		}
		ttf, err := te.TotalTermFreq()
		if err != nil {
			return err
		}
		fmt.Fprintf(d.w, "    %q docFreq=%v totalTermFreq=%v\n", term, docFreq, ttf)
		postings, err := te.Postings(flags)
		if err != nil {
			return err
		}
		if err = d.dumpPostings(fi, postings); err != nil {
			return err
		}
	}
}

func (d *dumper) dumpPostings(fi *model.FieldInfo, postings model.PostingsEnum) error {
	for {
		doc, err := postings.NextDoc()
		if err != nil {
			return err
		}
		if doc == model.NO_MORE_DOCS {
			return nil
		}
		freq, err := postings.Freq()
		if err != nil {
			return err
		}
		fmt.Fprintf(d.w, "      doc=%v freq=%v\n", doc, freq)
		if !d.positions || !fi.IndexOptions().HasPositions() {
			continue
		}
		for i := 0; i < freq; i++ {
			pos, err := postings.NextPosition()
			if err != nil {
				return err
			}
			start, err := postings.StartOffset()
			if err != nil {
				return err
			}
			end, err := postings.EndOffset()
			if err != nil {
				return err
			}
			payload, err := postings.Payload()
			if err != nil {
				return err
			}
			fmt.Fprintf(d.w, "        pos=%v offsets=%v-%v payload=%x\n", pos, start, end, payload)
		}
	}
}
