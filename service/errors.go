package service

import "errors"

var (
	// ErrCannotOperateOnRemoved is returned by enable/disable/retry/restart/
	// replace on a controller that has entered REMOVING or REMOVED.
	ErrCannotOperateOnRemoved = errors.New("service: controller has been removed")

	// ErrNotInFailedState is returned by Retry when the controller is not
	// currently FAILED.
	ErrNotInFailedState = errors.New("service: controller is not in FAILED state")

	// ErrNotInUpState is returned by Replace when the controller is not
	// currently UP.
	ErrNotInUpState = errors.New("service: controller is not in UP state")
)
