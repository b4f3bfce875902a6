package util

import "github.com/google/uuid"

// NewSubmissionID returns a fresh identifier for pending submissions and for
// kigers created through the moderation queue.
func NewSubmissionID() string {
	return uuid.NewString()
}
