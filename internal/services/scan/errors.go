package scan

import "errors"

// ErrCoolingDown is returned while the scanner is re-arming after a local
// safety rejection. The caller retries once the cool-down elapses.
var ErrCoolingDown = errors.New("scanner is cooling down")
