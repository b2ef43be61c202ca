package board

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewIssueID returns a time-ordered id with a random suffix, so issues
// created within the same millisecond still get distinct ids.
func NewIssueID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}
