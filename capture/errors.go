package capture

import "errors"

// Failure categories. None of these escape a capture call; they are logged, and the affected
// selector, scroll step, or chunk is skipped.
var (
	ErrSelectorResolution = errors.New("selector resolution failed")
	ErrScriptExecution    = errors.New("bounding rect script failed")
	ErrScroll             = errors.New("scroll failed")
	ErrPageSignatureRead  = errors.New("page signature unreadable")
	ErrScreenshotIO       = errors.New("screenshot write failed")
)

// Code summarises the outcome of resolving one selector.
type Code int

const (
	CodeOK Code = iota
	CodeNotFound
	CodeSelectorResolution
	CodeSkipped
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeNotFound:
		return "not-found"
	case CodeSelectorResolution:
		return "selector-resolution"
	case CodeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}
