package bytedancejimeng

import (
	"regexp"
	"strconv"
	"strings"
)

const defaultDimension = 1024

// sizePattern extracts WIDTH and HEIGHT from the size suffix, e.g. "768x768".
var sizePattern = regexp.MustCompile(`(\d+)[\W\w](\d+)`)

// parseModel splits "name:WxH" into the base model name and target
// dimensions rounded up to even values. Missing or unusable sizes default
// to 1024.
func parseModel(model string) (name string, width, height int) {
	name, size, _ := strings.Cut(model, ":")
	width, height = defaultDimension, defaultDimension
	if size == "" {
		return name, width, height
	}

	m := sizePattern.FindStringSubmatch(size)
	if m == nil {
		return name, width, height
	}
	return name, evenDimension(m[1]), evenDimension(m[2])
}

// evenDimension parses s and rounds it up to the nearest even integer.
func evenDimension(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultDimension
	}
	return n + n%2
}

// isVideoModel reports whether the model produces videos.
func isVideoModel(model string) bool {
	return strings.HasPrefix(model, "jimeng-video")
}
