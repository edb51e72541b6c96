package repository

import "errors"

// Common repository errors
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMemberNotFound  = errors.New("project member not found")
	ErrAlertNotFound   = errors.New("alert not found")

	// ErrAlertResolved is returned when an alert's task batch has already
	// been committed; callers surface it as a conflict.
	ErrAlertResolved = errors.New("alert already resolved")

	// ErrBucketNotEmpty is returned when deleting a bucket that still holds tasks.
	ErrBucketNotEmpty = errors.New("bucket still holds tasks")
)
