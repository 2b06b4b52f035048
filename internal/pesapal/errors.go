package pesapal

import "errors"

// Error taxonomy for gateway calls. All four are retryable from the caller's
// point of view except that ErrAuth usually means misconfigured credentials
// and will keep failing until resolved.
var (
	ErrAuth        = errors.New("pesapal: authentication failed")
	ErrSubmission  = errors.New("pesapal: order submission failed")
	ErrStatusQuery = errors.New("pesapal: transaction status query failed")
	ErrCancel      = errors.New("pesapal: order cancellation failed")
)
