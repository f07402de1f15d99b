package restir

// PassOption configures a Pass during creation.
//
// Example:
//
//	// CPU only, eight workers, fixed seed
//	p, err := restir.NewPass(cfg,
//	    restir.WithWorkers(8),
//	    restir.WithoutAccelerator(),
//	)
type PassOption func(*passOptions)

type passOptions struct {
	workers    int
	accel      Accelerator
	accelSet   bool
	noRayQuery bool
}

func defaultPassOptions() passOptions {
	return passOptions{}
}

// WithWorkers sets the number of CPU workers. Zero uses GOMAXPROCS.
func WithWorkers(n int) PassOption {
	return func(o *passOptions) {
		o.workers = n
	}
}

// WithAccelerator uses a instead of the registered accelerator.
func WithAccelerator(a Accelerator) PassOption {
	return func(o *passOptions) {
		o.accel = a
		o.accelSet = true
	}
}

// WithoutAccelerator forces CPU execution.
func WithoutAccelerator() PassOption {
	return WithAccelerator(nil)
}

// WithoutRayQueries declares that the execution device cannot trace
// rays. The pass is then constructed in a disabled state that produces
// cleared outputs.
func WithoutRayQueries() PassOption {
	return func(o *passOptions) {
		o.noRayQuery = true
	}
}
