package util

import (
	"fmt"
	"strconv"
	"strings"
)

// util/Version.java

// Version of the code that wrote a segment or a commit, encoded as
// major*100 + minor.
type Version int

const (
	VERSION_8_11 = Version(811)
	VERSION_8_12 = Version(812)

	VERSION_LATEST = VERSION_8_12
	// Oldest version whose commits can still be read
	VERSION_MIN_SUPPORTED = VERSION_8_11
)

func (v Version) OnOrAfter(other Version) bool {
	return int(v) >= int(other)
}

func (v Version) Major() int { return int(v) / 100 }
func (v Version) Minor() int { return int(v) % 100 }

func (v Version) String() string {
	return fmt.Sprintf("%v.%v", v.Major(), v.Minor())
}

// Parses the "major.minor" form produced by String().
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return 0, fmt.Errorf("Version is not in form major.minor: %v", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("Failed to parse major version from %v: %v", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("Failed to parse minor version from %v: %v", s, err)
	}
	if major < 0 || minor < 0 || minor > 99 {
		return 0, fmt.Errorf("Illegal version: %v", s)
	}
	return Version(major*100 + minor), nil
}
