package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUnknownSkill = errors.New("unknown skill")
	ErrJobRunning   = errors.New("update job already running")
)
