package service

import "errors"

var (
	// ErrInvalidInput marks malformed or out-of-range caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a lookup for a challan that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyPaid marks a payment attempt on a settled challan.
	ErrAlreadyPaid = errors.New("challan already paid")
	// ErrNoDetection marks a cycle that produced no challan: no
	// regions passed the gate or no plate matched. Non-fatal.
	ErrNoDetection = errors.New("no detection")
	// ErrBusy marks a manual trigger rejected because a cycle is
	// already in flight.
	ErrBusy = errors.New("detection cycle in progress")
	// ErrSessionActive marks a start attempt while a session runs.
	ErrSessionActive = errors.New("capture session already active")
	// ErrNoSession marks an operation that needs an active session.
	ErrNoSession = errors.New("no active capture session")
	// ErrCameraUnavailable marks a failed camera probe. Fatal to
	// starting a session.
	ErrCameraUnavailable = errors.New("camera unavailable")
)
