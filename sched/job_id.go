package sched

import (
	uuid "github.com/nu7hatch/gouuid"
)

// GenerateJobID generates a job id using a random uuid.
func GenerateJobID() string {
	// uuid.NewV4() reads crypto/rand and should never actually fail;
	// retrying is cheaper than plumbing an impossible error to every
	// caller.
	for {
		if id, err := uuid.NewV4(); err == nil {
			return id.String()
		}
	}
}
