package es812

import (
	"github.com/ironsweet/esengine/core/codec"
	"github.com/ironsweet/esengine/core/index/model"
	"github.com/ironsweet/esengine/core/store"
	"github.com/ironsweet/esengine/core/util"
)

// codecs/lucene50/Lucene50FieldInfosFormat.java

const (
	FIELD_INFOS_CODEC = "ES812FieldInfos"

	// Field flags
	FIELD_STORE_PAYLOADS = 0x1
	FIELD_OMIT_NORMS     = 0x2
)

/*
Writes the field infos of a segment to <segment>.fnm:

	Header, FieldsCount, <FieldName, FieldNumber, IndexOptions, FieldBits, Attributes>^FieldsCount, Footer
*/
func WriteFieldInfos(dir store.Directory, si *model.SegmentInfo, suffix string,
	infos model.FieldInfos, ctx store.IOContext) (err error) {

	filename := util.SegmentFileName(si.Name, suffix, FIELD_INFOS_EXTENSION)
	out, err := dir.CreateOutput(filename, ctx)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if success {
			err = out.Close()
		} else {
			util.CloseWhileSuppressingError(out)
			util.DeleteFilesIgnoringErrors(dir, filename)
		}
	}()

	if err = codec.WriteIndexHeader(out, FIELD_INFOS_CODEC, VERSION_CURRENT, si.ID(), suffix); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(infos.Size())); err != nil {
		return err
	}
	for _, fi := range infos.Values {
		var bits byte
		if fi.HasPayloads() {
			bits |= FIELD_STORE_PAYLOADS
		}
		if fi.OmitsNorms() {
			bits |= FIELD_OMIT_NORMS
		}
		if err = out.WriteString(fi.Name); err == nil {
			err = out.WriteVInt(fi.Number)
		}
		if err == nil {
			err = out.WriteByte(byte(fi.IndexOptions()))
		}
		if err == nil {
			err = out.WriteByte(bits)
		}
		if err == nil {
			err = out.WriteStringStringMap(fi.Attributes())
		}
		if err != nil {
			return err
		}
	}
	if err = codec.WriteFooter(out); err != nil {
		return err
	}
	success = true
	return nil
}

// Reads the field infos written by WriteFieldInfos, verifying the checksum.
func ReadFieldInfos(dir store.Directory, si *model.SegmentInfo, suffix string,
	ctx store.IOContext) (infos model.FieldInfos, err error) {

	filename := util.SegmentFileName(si.Name, suffix, FIELD_INFOS_EXTENSION)
	input, err := dir.OpenChecksumInput(filename, ctx)
	if err != nil {
		return infos, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, input)
	}()

	if _, err = codec.CheckIndexHeader(input, FIELD_INFOS_CODEC, VERSION_START, VERSION_CURRENT, si.ID(), suffix); err != nil {
		return infos, err
	}
	size, err := input.ReadVInt()
	if err != nil {
		return infos, err
	}
	if size < 0 {
		return infos, model.NewCorruptIndexError(input, "invalid field count: %v", size)
	}

	values := make([]*model.FieldInfo, 0, size)
	byNumber := make(map[int32]bool)
	byName := make(map[string]bool)
	for i := int32(0); i < size; i++ {
		name, err := input.ReadString()
		if err != nil {
			return infos, err
		}
		number, err := input.ReadVInt()
		if err != nil {
			return infos, err
		}
		if number < 0 || byNumber[number] || byName[name] {
			return infos, model.NewCorruptIndexError(input, "invalid or duplicate field: %v (number=%v)", name, number)
		}
		byNumber[number], byName[name] = true, true
		opts, err := input.ReadByte()
		if err != nil {
			return infos, err
		}
		if model.IndexOptions(opts) > model.INDEX_OPT_DOCS_AND_FREQS_AND_POSITIONS_AND_OFFSETS {
			return infos, model.NewCorruptIndexError(input, "invalid index options byte: %v", opts)
		}
		bits, err := input.ReadByte()
		if err != nil {
			return infos, err
		}
		attributes, err := input.ReadStringStringMap()
		if err != nil {
			return infos, err
		}
		values = append(values, model.NewFieldInfo(name, number, model.IndexOptions(opts),
			bits&FIELD_STORE_PAYLOADS != 0, bits&FIELD_OMIT_NORMS != 0, attributes))
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return infos, err
	}
	return model.NewFieldInfos(values), nil
}
