package scan

import "context"

// Service orchestrates a scan attempt: decode the raw code, classify it,
// validate the role pairing locally, then submit to the settlement endpoint.
// The local checks are advisory; the server re-validates every submission.
//
// Scans are user-present interactions, so a transport failure is surfaced
// instead of retried. Background retry belongs to the transfer queue.
type Service interface {
	Scan(ctx context.Context, input Input) (*Result, error)
}

// CodeConsumer marks a locally issued single-use code as used before the
// submission goes out. Codes issued elsewhere are not found here and pass
// through untouched.
type CodeConsumer interface {
	Consume(ctx context.Context, code string) error
}
