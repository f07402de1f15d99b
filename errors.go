package restir

import "errors"

var (
	// ErrGeometryChanged is returned by Pass.Execute when the bound scene
	// reports a geometry change. The frame is aborted and no reservoir
	// state is modified; the caller must rebind the scene with SetScene.
	ErrGeometryChanged = errors.New("restir: scene geometry changed while bound")

	// ErrUnsupportedDevice reports that the execution device lacks ray
	// queries. A pass constructed on such a device logs the error and
	// produces cleared outputs.
	ErrUnsupportedDevice = errors.New("restir: device does not support ray queries")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("restir: invalid config")

	// ErrMissingInput reports that a required input channel is absent.
	ErrMissingInput = errors.New("restir: missing required input")

	// ErrPingPongHazard is the panic value raised when a stage would read
	// the store it is writing.
	ErrPingPongHazard = errors.New("restir: stage reads the store it writes")

	// ErrFallbackToCPU indicates the accelerator cannot run this frame.
	// The pass transparently runs the CPU stages instead.
	ErrFallbackToCPU = errors.New("restir: falling back to CPU execution")
)
