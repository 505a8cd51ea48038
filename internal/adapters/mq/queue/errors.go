package queue

import "errors"

// ErrRejected is returned by producers when Enqueue refuses a job.
var ErrRejected = errors.New("queue rejected job")
