package name

import "errors"

var (
	errEmptyPath    = errors.New("name: empty path")
	errEmptySegment = errors.New("name: path contains an empty segment")
)
