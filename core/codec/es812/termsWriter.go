package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

const (
	TERMS_DICT_CODEC = "ES812FlatTermsDict"

	// Every ABSOLUTE_INTERVAL-th term of a field encodes its metadata
	// absolutely; the others as deltas to the previous term.
	ABSOLUTE_INTERVAL = 32
)

type fieldMetaData struct {
	fieldInfo        *model.FieldInfo
	numTerms         int64
	termsStartFP     int64
	sumTotalTermFreq int64
	sumDocFreq       int64
	docCount         int
}

/*
Flat terms dictionary. Terms of each field are written in sorted
order, each followed by its statistics and the metadata produced by
the postings writer:

	Term     --> VInt(len), bytes
	Stats    --> VInt(docFreq), VLong(totalTermFreq-docFreq) if the field has freqs
	Metadata --> PostingsWriterBase.EncodeTerm()

The file ends with a per-field directory and a pointer to it, followed
by the codec footer.
*/
type TermsWriter struct {
	out            store.IndexOutput
	maxDoc         int
	postingsWriter spi.PostingsWriterBase
	fieldInfos     model.FieldInfos
	fields         []*fieldMetaData
}

var _ spi.FieldsConsumer = (*TermsWriter)(nil)

func NewTermsWriter(state *spi.SegmentWriteState, postingsWriter spi.PostingsWriterBase) (*TermsWriter, error) {
	w := &TermsWriter{
		maxDoc:         state.SegmentInfo.MaxDoc(),
		fieldInfos:     state.FieldInfos,
		postingsWriter: postingsWriter,
	}
	out, err := state.Directory.CreateOutput(state.FileName(TERMS_EXTENSION), state.Context)
	if err != nil {
		return nil, err
	}
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(out)
		}
	}()

	if err = codec.WriteIndexHeader(out, TERMS_DICT_CODEC, VERSION_CURRENT,
		state.SegmentInfo.ID(), state.SegmentSuffix); err != nil {
		return nil, err
	}
	// have consumer write its format/header
	if err = postingsWriter.Init(out, state); err != nil {
		return nil, err
	}
	w.out = out
	success = true
	return w, nil
}

func (w *TermsWriter) Write(fields spi.Fields, norms spi.NormsProducer) error {
	for _, field := range fields.Names() {
		terms, err := fields.Terms(field)
		if err != nil {
			return err
		}
		if terms == nil {
			continue
		}
		fieldInfo := w.fieldInfos.FieldInfoByName(field)
		assert2(fieldInfo != nil, "unknown field: %v", field)
		if err = w.writeField(fieldInfo, terms, norms); err != nil {
			return err
		}
	}
	return nil
}

func (w *TermsWriter) writeField(fieldInfo *model.FieldInfo, terms spi.Terms, norms spi.NormsProducer) error {
	termsEnum, err := terms.Iterator()
	if err != nil {
		return err
	}
	w.postingsWriter.SetField(fieldInfo)
	hasFreqs := fieldInfo.IndexOptions().HasFreqs()
	docsSeen := util.NewFixedBitSetOf(w.maxDoc)
	meta := &fieldMetaData{fieldInfo: fieldInfo, termsStartFP: w.out.FilePointer()}

	for {
		term, err := termsEnum.Next()
		if err != nil {
			return err
		}
		if term == nil {
			break
		}
		state, err := w.postingsWriter.WriteTerm(term, termsEnum, docsSeen, norms)
		if err != nil {
			return err
		}
		if state == nil {
			continue
		}
		if err = writeBytesRef(w.out, term); err != nil {
			return err
		}
		if err = w.out.WriteVInt(int32(state.DocFreq)); err != nil {
			return err
		}
		if hasFreqs {
			assertTrue(state.TotalTermFreq >= int64(state.DocFreq))
			if err = w.out.WriteVLong(state.TotalTermFreq - int64(state.DocFreq)); err != nil {
				return err
			}
		}
		absolute := meta.numTerms%ABSOLUTE_INTERVAL == 0
		if err = w.postingsWriter.EncodeTerm(w.out, fieldInfo, state, absolute); err != nil {
			return err
		}
		meta.numTerms++
		meta.sumDocFreq += int64(state.DocFreq)
		meta.sumTotalTermFreq += state.TotalTermFreq
	}

	if meta.numTerms > 0 {
		meta.docCount = docsSeen.Cardinality()
		w.fields = append(w.fields, meta)
	}
	return nil
}

func (w *TermsWriter) Close() (err error) {
	if w.out == nil {
		return nil
	}
	defer func() {
		if err == nil {
			err = util.Close(w.out, w.postingsWriter)
		} else {
			err = util.CloseWhileHandlingError(err, w.out, w.postingsWriter)
		}
		w.out = nil
	}()

	dirStart := w.out.FilePointer()
	if err = w.out.WriteVInt(int32(len(w.fields))); err != nil {
		return
	}
	for _, field := range w.fields {
		assertTrue(field.numTerms > 0)
		if err = w.out.WriteVInt(field.fieldInfo.Number); err != nil {
			return
		}
		if err = w.out.WriteVLong(field.numTerms); err != nil {
			return
		}
		if err = w.out.WriteVLong(field.termsStartFP); err != nil {
			return
		}
		if field.fieldInfo.IndexOptions().HasFreqs() {
			if err = w.out.WriteVLong(field.sumTotalTermFreq); err != nil {
				return
			}
		}
		if err = w.out.WriteVLong(field.sumDocFreq); err != nil {
			return
		}
		if err = w.out.WriteVInt(int32(field.docCount)); err != nil {
			return
		}
	}
	if err = w.out.WriteLong(dirStart); err != nil {
		return
	}
	return codec.WriteFooter(w.out)
}

func writeBytesRef(out util.DataOutput, bytes []byte) (err error) {
	if err = out.WriteVInt(int32(len(bytes))); err == nil {
		err = out.WriteBytes(bytes)
	}
	return
}
