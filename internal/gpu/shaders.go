//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/restir"
)

// Embedded WGSL sources. A kernel is the stage defines, the stage ids,
// common.wgsl, reuse.wgsl for the reuse stages and the stage body.

//go:embed shaders/common.wgsl
var commonSource string

//go:embed shaders/reuse.wgsl
var reuseSource string

//go:embed shaders/generate.wgsl
var generateSource string

//go:embed shaders/temporal.wgsl
var temporalSource string

//go:embed shaders/spatial.wgsl
var spatialSource string

//go:embed shaders/shade.wgsl
var shadeSource string

// stages lists the kernels in pipeline order. The ids match the lane
// stream ids of the CPU stages so both draw identical random numbers.
var stages = []struct {
	name  string
	id    uint32
	body  string
	reuse bool
}{
	{"generate", 1, generateSource, false},
	{"temporal", 2, temporalSource, true},
	{"spatial", 3, spatialSource, true},
	{"shade", 4, shadeSource, false},
}

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

var errUnknownStage = errors.New("gpu: unknown stage")

// kernelSource assembles the WGSL source of one stage.
func kernelSource(stage string, d restir.Defines) (string, error) {
	var b strings.Builder
	b.WriteString(d.WGSL())
	found := false
	for _, s := range stages {
		fmt.Fprintf(&b, "const STAGE_%s = %du;\n", strings.ToUpper(s.name), s.id)
		found = found || s.name == stage
	}
	if !found {
		return "", fmt.Errorf("%w: %q", errUnknownStage, stage)
	}
	b.WriteString(commonSource)
	for _, s := range stages {
		if s.name != stage {
			continue
		}
		if s.reuse {
			b.WriteString(reuseSource)
		}
		b.WriteString(s.body)
	}
	return b.String(), nil
}

// compileKernel validates the stage source by compiling it to SPIR-V.
// The source is returned for module creation; wgpu compiles WGSL itself.
func compileKernel(stage string, d restir.Defines) (string, []byte, error) {
	src, err := kernelSource(stage, d)
	if err != nil {
		return "", nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return "", nil, fmt.Errorf("gpu: compile %s kernel: %w", stage, err)
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return "", nil, fmt.Errorf("gpu: compile %s kernel: missing SPIR-V header", stage)
	}
	return src, spirv, nil
}
