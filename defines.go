package restir

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Defines is the set of compile-time switches of a stage kernel. Values
// are bool, uint32 or float32.
type Defines map[string]any

// Add copies every entry of o into d.
func (d Defines) Add(o Defines) Defines {
	maps.Copy(d, o)
	return d
}

// Key returns a canonical string form used as the kernel cache key.
func (d Defines) Key() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(d)) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatDefine(d[k]))
		b.WriteByte(';')
	}
	return b.String()
}

// WGSL renders the set as WGSL constant declarations, in key order, for
// prepending to kernel source.
func (d Defines) WGSL() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(d)) {
		fmt.Fprintf(&b, "const %s = %s;\n", k, formatDefine(d[k]))
	}
	return b.String()
}

// Bool returns a boolean define; absent reads as false.
func (d Defines) Bool(name string) bool {
	v, _ := d[name].(bool)
	return v
}

// Uint returns an unsigned define; absent reads as zero.
func (d Defines) Uint(name string) uint32 {
	v, _ := d[name].(uint32)
	return v
}

// Float returns a float define; absent reads as zero.
func (d Defines) Float(name string) float32 {
	v, _ := d[name].(float32)
	return v
}

func formatDefine(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case uint32:
		return strconv.FormatUint(uint64(x), 10) + "u"
	case float32:
		s := strconv.FormatFloat(float64(x), 'f', -1, 32)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprintf("%v", x)
	}
}

// validateDefines rejects values of unsupported types.
func validateDefines(d Defines) error {
	for k, v := range d {
		switch v.(type) {
		case bool, uint32, float32:
		default:
			return fmt.Errorf("define %s has unsupported type %T", k, v)
		}
	}
	return nil
}

// stageDefines returns the define set of one stage for the current frame.
// Only fields a stage reads take part, so changing e.g. the spatial radius
// leaves the generate kernel cached.
func stageDefines(stage stageID, cfg Config, features Features, channels Defines, frameCount uint64) Defines {
	d := Defines{
		"INTEGRATOR":      uint32(cfg.Integrator),
		"USE_RESTIR":      cfg.UseReSTIR,
		"HALF_RESOLUTION": cfg.HalfResolution,
	}
	switch stage {
	case stageGenerate:
		d["RIS_SAMPLE_NUMS"] = cfg.RISSampleCount
		d["USE_ANALYTIC_LIGHTS"] = features.Has(FeatureAnalyticLights)
		d["USE_EMISSIVE_LIGHTS"] = features.Has(FeatureEmissive)
		d["USE_ENV_LIGHT"] = features.Has(FeatureEnvLight)
		if cfg.Integrator == IntegratorGlobal {
			d["MAX_BOUNCES"] = cfg.MaxBounces
			d["RUSSIAN_ROULETTE"] = cfg.RussianRoulette
		}
	case stageTemporal:
		d["USE_TEMPORAL_REUSE"] = cfg.temporalActive(frameCount)
		d["TEMPORAL_REUSE_MAX_M"] = cfg.EffectiveMaxM()
		d["DEPTH_THRESHOLD"] = cfg.DepthThreshold
		d["NORMAL_THRESHOLD"] = cfg.NormalThreshold
		d["is_valid_"+ChannelMotion] = channels.Bool("is_valid_" + ChannelMotion)
		d["is_valid_"+ChannelDepth] = channels.Bool("is_valid_" + ChannelDepth)
	case stageSpatial:
		d["USE_SPATIAL_REUSE"] = cfg.spatialActive()
		d["SPATIAL_NEIGHBORS"] = cfg.SpatialNeighbors
		d["SPATIAL_RADIUS"] = cfg.SpatialRadius
		d["SPATIAL_REUSE_MAX_M"] = cfg.SpatialMaxM
		d["VISIBILITY_REUSE_MODE"] = uint32(cfg.VisibilityReuse)
		d["DEPTH_THRESHOLD"] = cfg.DepthThreshold
		d["NORMAL_THRESHOLD"] = cfg.NormalThreshold
		d["is_valid_"+ChannelDepth] = channels.Bool("is_valid_" + ChannelDepth)
	case stageShade:
		d["VISIBILITY_REUSE_MODE"] = uint32(cfg.VisibilityReuse)
		d["SPLIT_VIEW"] = cfg.SplitView
		d["USE_ANALYTIC_LIGHTS"] = features.Has(FeatureAnalyticLights)
		d["USE_EMISSIVE_LIGHTS"] = features.Has(FeatureEmissive)
		if cfg.Integrator == IntegratorGlobal {
			d["EVAL_DIRECT"] = cfg.EvalDirect
		}
	}
	return d
}
