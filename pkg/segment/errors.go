package segment

import "errors"

// Every pipeline failure wraps one of these sentinels, so callers can branch
// with errors.Is. All of them are terminal for the current invocation; the
// only tolerated failure is the optional overlay write, which is logged and
// swallowed.
var (
	ErrModelLoad  = errors.New("segmentation model load failed")
	ErrInputImage = errors.New("input image unreadable")
	ErrValidation = errors.New("invalid prompt input")
	ErrEncoding   = errors.New("model encoding failed")
	ErrNoMask     = errors.New("model produced no mask")
	ErrOutputIO   = errors.New("output write failed")
)
