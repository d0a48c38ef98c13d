package impostor

import "errors"

var (
	// ErrBatchFull is returned when a batch has no free quad slot left.
	ErrBatchFull = errors.New("impostor: batch quad capacity exhausted")

	// ErrAtlasBudget is returned when a new atlas page would exceed the page budget.
	ErrAtlasBudget = errors.New("impostor: atlas page budget exhausted")

	// ErrMissingMaterial is fatal: batches cannot be drawn without an impostor material.
	ErrMissingMaterial = errors.New("impostor: missing impostor material")

	// ErrDegenerateFrame means the framed box lies entirely behind the viewer.
	ErrDegenerateFrame = errors.New("impostor: bounds are behind the viewer")
)
