package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// index/IndexFileNames.java

const (
	// Name of the index segment file
	SEGMENTS = "segments"
)

/*
Computes the full file name from base, extension and generation. If
the generation is -1, the file name is "". If it's 0, the file name
is <base>.<ext>. Otherwise, the file name is <base>_<gen>.<ext>, with
the generation written in base 36.
*/
func FileNameFromGeneration(base, ext string, gen int64) string {
	switch {
	case gen == -1:
		return ""
	case gen == 0:
		return SegmentFileName(base, "", ext)
	default:
		assertTrue(gen > 0)
		name := fmt.Sprintf("%v_%v", base, strconv.FormatInt(gen, 36))
		if len(ext) > 0 {
			name += "." + ext
		}
		return name
	}
}

/*
Returns a file name that includes the given segment name, your own
custom name and extension. The format of the filename is:
<segmentName>(_<name>)(.<ext>).
*/
func SegmentFileName(name, suffix, ext string) string {
	if len(ext) == 0 && len(suffix) == 0 {
		return name
	}
	assert2(!strings.HasPrefix(ext, "."), "extension must not start with '.': %v", ext)
	var sb strings.Builder
	sb.WriteString(name)
	if len(suffix) > 0 {
		sb.WriteString("_")
		sb.WriteString(suffix)
	}
	if len(ext) > 0 {
		sb.WriteString(".")
		sb.WriteString(ext)
	}
	return sb.String()
}

func indexOfSegmentName(filename string) int {
	// If it is a .del file, there's an '_' after the first character
	if idx := strings.Index(filename[1:], "_"); idx >= 0 {
		return idx + 1
	}
	// If it's not, strip everything that's before the '.'
	return strings.Index(filename, ".")
}

// Parses the segment name out of the given file name.
func ParseSegmentName(filename string) string {
	if idx := indexOfSegmentName(filename); idx != -1 {
		return filename[0:idx]
	}
	return filename
}

/*
Parse the generation off the segments file name and return it.
"segments" maps to generation 0.
*/
func GenerationFromSegmentsFileName(filename string) (int64, error) {
	switch {
	case filename == SEGMENTS:
		return 0, nil
	case strings.HasPrefix(filename, SEGMENTS+"_"):
		return strconv.ParseInt(filename[len(SEGMENTS)+1:], 36, 64)
	default:
		return 0, fmt.Errorf("fileName '%v' is not a segments file", filename)
	}
}

// All files created by codecs must match this pattern (checked in SegmentInfo)
var CODEC_FILE_PATTERN = regexp.MustCompile("_[a-z0-9]+(_.*)?\\..*")
