package tracker

import "errors"

var (
	// ErrServiceNotStarted means the job runs but its service URL never
	// appeared within the resolution budget. The remote job is left alone.
	ErrServiceNotStarted = errors.New("service did not start")

	// ErrNodeNotFound means the scheduler reported no usable node for the job
	ErrNodeNotFound = errors.New("could not find node for job")
)
