package wallet

import "errors"

// ErrBalanceUnavailable means the live fetch failed and no cached snapshot
// exists to fall back on.
var ErrBalanceUnavailable = errors.New("balance unavailable: live fetch failed and no cached snapshot")
