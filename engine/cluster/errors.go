package cluster

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceCreation reports that Init could not create a pipeline, buffer or bind group.
	// The lighting system is unusable until Init succeeds.
	ErrResourceCreation = errors.New("cluster: resource creation failed")

	// ErrDeviceLost reports that the device refused a per-frame operation. The frame is
	// skipped and the previous frame's buffers stay bound.
	ErrDeviceLost = errors.New("cluster: device lost")

	// ErrNotInitialized reports a per-frame call before Init.
	ErrNotInitialized = errors.New("cluster: not initialized")

	// ErrStrictSlotsExhausted reports a draw beyond the strict list slots of one frame.
	// The draw gets no list; raise WithStrictSlots.
	ErrStrictSlotsExhausted = errors.New("cluster: strict list slots exhausted")
)

func resourceErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResourceCreation, what, err)
}

func deviceErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDeviceLost, what, err)
}
