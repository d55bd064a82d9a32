package engine

import (
	"github.com/ironsweet/esengine/core/codec/es812"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index"
	"github.com/ironsweet/esengine/core/index/memory"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// index/DocumentsWriterPerThread.java

/*
Writes the given in-memory postings as a new segment with the
configured postings format. The files are recorded through a
TrackingDirectoryWrapper and synced; on failure every file written so
far is removed. The segment becomes part of the index with the next
Commit.
*/
func (e *Engine) FlushSegment(fields *memory.Fields) (*index.SegmentCommitInfo, error) {
	name := e.NewSegmentName()
	info := model.NewSegmentInfo(e.directory, util.VERSION_LATEST.String(), name,
		fields.MaxDoc(), e.postingsFormat.Name(), model.NewSegmentID(),
		map[string]string{"source": "flush"})
	dir := store.NewTrackingDirectoryWrapper(e.directory)
	ctx := store.NewIOContextForFlush(&store.FlushInfo{NumDocs: fields.MaxDoc()})

	var success = false
	defer func() {
		if !success {
			util.DeleteFilesIgnoringErrors(e.directory, dir.CreatedFileNames()...)
		}
	}()

	if err := es812.WriteFieldInfos(dir, info, "", fields.FieldInfos(), ctx); err != nil {
		return nil, err
	}
	state := spi.NewSegmentWriteState(nil, dir, info, fields.FieldInfos(), "", ctx)
	consumer, err := e.postingsFormat.FieldsConsumer(state)
	if err != nil {
		return nil, err
	}
	if err = consumer.Write(fields, fields); err != nil {
		util.CloseWhileSuppressingError(consumer)
		return nil, err
	}
	if err = consumer.Close(); err != nil {
		return nil, err
	}
	if err = e.directory.Sync(dir.CreatedFileNames()); err != nil {
		return nil, err
	}
	info.SetFiles(dir.CreatedFiles())
	success = true
	return index.NewSegmentCommitInfo(info, 0), nil
}

/*
Opens the postings of a committed segment. The caller closes the
returned producer.
*/
func OpenSegment(segment *index.SegmentCommitInfo) (spi.FieldsProducer, model.FieldInfos, error) {
	info := segment.Info
	format, err := spi.LoadPostingsFormat(info.Codec())
	if err != nil {
		return nil, model.FieldInfos{}, err
	}
	infos, err := es812.ReadFieldInfos(info.Dir, info, "", store.IO_CONTEXT_READONCE)
	if err != nil {
		return nil, infos, err
	}
	state := spi.NewSegmentReadState(info.Dir, info, infos, store.IO_CONTEXT_READ, "")
	producer, err := format.FieldsProducer(state)
	return producer, infos, err
}
