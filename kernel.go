package restir

import (
	"fmt"

	"github.com/gogpu/restir/internal/cache"
)

// kernel is a stage compiled for one define set. The CPU stages read
// their parameters from the kernel, never from Config, so a stale kernel
// would show up as stale behaviour.
type kernel struct {
	stage stageID
	key   string

	integrator Integrator
	useReSTIR  bool
	halfRes    bool

	risSamples      uint32
	useAnalytic     bool
	useEmissive     bool
	useEnv          bool
	maxBounces      uint32
	russianRoulette float32

	temporal bool
	maxM     uint32
	depthT   float32
	normalT  float32
	motion   bool

	spatial     bool
	neighbors   uint32
	radius      float32
	spatialMaxM uint32
	visibility  VisibilityReuseMode

	splitView  bool
	evalDirect bool
}

func kernelKey(stage stageID, d Defines) string {
	return stage.String() + ":" + d.Key()
}

// compileKernel builds the CPU rendition of a stage.
func compileKernel(stage stageID, d Defines) (*kernel, error) {
	if err := validateDefines(d); err != nil {
		return nil, fmt.Errorf("compile %s kernel: %w", stage, err)
	}
	k := &kernel{
		stage:           stage,
		key:             kernelKey(stage, d),
		integrator:      Integrator(d.Uint("INTEGRATOR")),
		useReSTIR:       d.Bool("USE_RESTIR"),
		halfRes:         d.Bool("HALF_RESOLUTION"),
		risSamples:      d.Uint("RIS_SAMPLE_NUMS"),
		useAnalytic:     d.Bool("USE_ANALYTIC_LIGHTS"),
		useEmissive:     d.Bool("USE_EMISSIVE_LIGHTS"),
		useEnv:          d.Bool("USE_ENV_LIGHT"),
		maxBounces:      d.Uint("MAX_BOUNCES"),
		russianRoulette: d.Float("RUSSIAN_ROULETTE"),
		temporal:        d.Bool("USE_TEMPORAL_REUSE"),
		maxM:            d.Uint("TEMPORAL_REUSE_MAX_M"),
		depthT:          d.Float("DEPTH_THRESHOLD"),
		normalT:         d.Float("NORMAL_THRESHOLD"),
		motion:          d.Bool("is_valid_" + ChannelMotion),
		spatial:         d.Bool("USE_SPATIAL_REUSE"),
		neighbors:       d.Uint("SPATIAL_NEIGHBORS"),
		radius:          d.Float("SPATIAL_RADIUS"),
		spatialMaxM:     d.Uint("SPATIAL_REUSE_MAX_M"),
		visibility:      VisibilityReuseMode(d.Uint("VISIBILITY_REUSE_MODE")),
		splitView:       d.Bool("SPLIT_VIEW"),
		evalDirect:      d.Bool("EVAL_DIRECT"),
	}
	if stage == stageGenerate && k.risSamples == 0 {
		return nil, fmt.Errorf("compile %s kernel: RIS_SAMPLE_NUMS is zero", stage)
	}
	return k, nil
}

// kernelCacheSize bounds the number of live variants. Every stage has a
// handful of variants in practice (temporal flips once after frame 0).
const kernelCacheSize = 64

func newKernelCache() *cache.Cache[string, *kernel] {
	return cache.New[string, *kernel](kernelCacheSize)
}

// KernelStats reports kernel cache activity.
type KernelStats struct {
	Live   int
	Builds uint64
	Hits   uint64
	Misses uint64
}
