package service

import "errors"

// Not-found failures: a referenced entity does not exist.
var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrTalentNotFound    = errors.New("talent not found")
	ErrSlotNotFound      = errors.New("audition slot not found")
	ErrBookingNotFound   = errors.New("booking not found")
)

// Validation failures: the request contradicts the current state.
var (
	ErrCharacterMismatch = errors.New("character does not belong to the stated project")
	ErrInvalidCapacity   = errors.New("max participants must be at least 1")
	ErrInvalidTimeRange  = errors.New("slot duration must be positive")
	ErrSlotInactive      = errors.New("audition slot has been deactivated")
	ErrSlotFull          = errors.New("target slot has no free capacity")
	ErrSameSlot          = errors.New("booking already belongs to that slot")
	ErrBookingCancelled  = errors.New("booking is already cancelled")
)
