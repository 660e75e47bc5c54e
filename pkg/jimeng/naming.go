package jimeng

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix is the filename prefix for saved images.
const DefaultPrefix = "img"

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidatePrefix rejects prefixes that could escape the output directory or
// break parsing of the timestamp segment.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return &ValidationError{Field: "prefix", Reason: fmt.Sprintf("%q must match %s", prefix, prefixPattern)}
	}
	return nil
}

// Namer hands out millisecond stamps for filenames. Stamps are strictly
// increasing, so two invocations in the same millisecond still get distinct
// names while keeping the {prefix}_{ms}_{index}.{ext} layout.
type Namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNamer creates a Namer using now as the clock; nil means time.Now.
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// sharedNamer is used by every Client that does not set its own, so
// concurrent clients in one process never collide.
var sharedNamer = NewNamer(nil)

// Stamp returns the next unique Unix millisecond value.
func (n *Namer) Stamp() int64 {
	ms := n.now().UnixMilli()
	n.mu.Lock()
	defer n.mu.Unlock()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return ms
}

// FileName formats {prefix}_{ms}_{index}.{ext}.
func FileName(prefix string, ms int64, index int, ext string) string {
	return prefix + "_" + strconv.FormatInt(ms, 10) + "_" + strconv.Itoa(index) + "." + ext
}

// FileInfo is the parsed form of a saved image name.
type FileInfo struct {
	Prefix string
	Millis int64
	Index  int
	Ext    string
}

// Time returns the stamp as a time in the local zone.
func (f FileInfo) Time() time.Time {
	return time.UnixMilli(f.Millis)
}

// ParseFilename parses a saved image name. It splits from the right, so a
// prefix containing underscores still parses. ok is false for names that do
// not follow the layout.
func ParseFilename(name string) (info FileInfo, ok bool) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return FileInfo{}, false
	}
	stem, ext := name[:dot], name[dot+1:]

	i := strings.LastIndexByte(stem, '_')
	if i <= 0 {
		return FileInfo{}, false
	}
	index, err := strconv.Atoi(stem[i+1:])
	if err != nil || index < 0 {
		return FileInfo{}, false
	}
	stem = stem[:i]

	j := strings.LastIndexByte(stem, '_')
	if j <= 0 {
		return FileInfo{}, false
	}
	ms, err := strconv.ParseInt(stem[j+1:], 10, 64)
	if err != nil || ms < 0 {
		return FileInfo{}, false
	}

	return FileInfo{Prefix: stem[:j], Millis: ms, Index: index, Ext: ext}, true
}

// imageExt sniffs the file extension from the image bytes.
func imageExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// IsImageName reports whether name has an image extension served by the
// history listing.
func IsImageName(name string) bool {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return false
	}
	switch strings.ToLower(name[dot+1:]) {
	case "png", "jpg", "jpeg", "webp", "gif":
		return true
	}
	return false
}
