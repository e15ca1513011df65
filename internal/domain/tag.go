package domain

import (
	"regexp"
	"strings"

	"github.com/mrz1836/slipway/internal/errors"
)

// tagPattern is the strict semantic-version trigger pattern with optional
// leading "v". Anything else does not start a release run.
var tagPattern = regexp.MustCompile(`^v?[0-9]+\.[0-9]+\.[0-9]+$`)

// refsTagPrefix is the ref prefix attached by the version-control host when
// the trigger arrives as a full ref.
const refsTagPrefix = "refs/tags/"

// Tag is a validated release version tag, stored without the refs/tags/ prefix.
type Tag string

// ParseTag validates a trigger tag and strips a refs/tags/ prefix if present.
// Returns ErrInvalidTag if the remaining name does not match the strict
// semantic-version pattern.
func ParseTag(raw string) (Tag, error) {
	name := strings.TrimPrefix(raw, refsTagPrefix)
	if !tagPattern.MatchString(name) {
		return "", errors.Wrapf(errors.ErrInvalidTag, "tag %q", raw)
	}
	return Tag(name), nil
}

// String returns the tag name as it appears in artifact and release names.
func (t Tag) String() string {
	return string(t)
}

// Version returns the bare semantic version with any leading "v" removed.
func (t Tag) Version() string {
	return strings.TrimPrefix(string(t), "v")
}
