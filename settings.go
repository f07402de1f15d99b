package restir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Settings keys accepted by Config.ApplySettings. The names match the
// script keys of the original render graphs.
const (
	KeyIntegrator       = "integrator"
	KeyUseReSTIR        = "useReSTIR"
	KeyRISSampleCount   = "risSampleNums"
	KeyTemporalReuse    = "useTemporalReuse"
	KeyTemporalMaxM     = "temporalReuseMaxM"
	KeyAutoMaxM         = "autoSetMaxM"
	KeySpatialReuse     = "useSpatialReuse"
	KeySpatialNeighbors = "spatialNeighbors"
	KeySpatialRadius    = "spatialRadius"
	KeySpatialMaxM      = "spatialReuseMaxM"
	KeyHalfResolution   = "halfResolution"
	KeyVisibilityReuse  = "visibilityReuseMode"
	KeyDepthThreshold   = "depthThreshold"
	KeyNormalThreshold  = "normalThreshold"
	KeyMaxBounces       = "maxBounces"
	KeyRussianRoulette  = "russianRoulette"
	KeyEvalDirect       = "evalDirect"
	KeySplitView        = "splitView"
	KeySeed             = "seed"
)

type setting struct {
	get func(*Config) any
	set func(*Config, any) error
}

func boolSetting(field func(*Config) *bool) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			b, err := toBool(v)
			if err == nil {
				*field(c) = b
			}
			return err
		},
	}
}

func uintSetting(field func(*Config) *uint32) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			u, err := toUint(v, math.MaxUint32)
			if err == nil {
				*field(c) = uint32(u)
			}
			return err
		},
	}
}

func floatSetting(field func(*Config) *float32) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			f, err := toFloat(v)
			if err == nil {
				*field(c) = f
			}
			return err
		},
	}
}

var settingsTable = map[string]setting{
	KeyIntegrator: {
		get: func(c *Config) any { return c.Integrator.String() },
		set: func(c *Config, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("want string, got %T", v)
			}
			i, err := ParseIntegrator(s)
			if err == nil {
				c.Integrator = i
			}
			return err
		},
	},
	KeyVisibilityReuse: {
		get: func(c *Config) any { return c.VisibilityReuse.String() },
		set: func(c *Config, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("want string, got %T", v)
			}
			m, err := ParseVisibilityReuseMode(s)
			if err == nil {
				c.VisibilityReuse = m
			}
			return err
		},
	},
	KeySeed: {
		get: func(c *Config) any { return c.Seed },
		set: func(c *Config, v any) error {
			u, err := toUint(v, math.MaxUint64)
			if err == nil {
				c.Seed = u
			}
			return err
		},
	},
	KeyUseReSTIR:        boolSetting(func(c *Config) *bool { return &c.UseReSTIR }),
	KeyTemporalReuse:    boolSetting(func(c *Config) *bool { return &c.TemporalReuse }),
	KeyAutoMaxM:         boolSetting(func(c *Config) *bool { return &c.AutoMaxM }),
	KeySpatialReuse:     boolSetting(func(c *Config) *bool { return &c.SpatialReuse }),
	KeyHalfResolution:   boolSetting(func(c *Config) *bool { return &c.HalfResolution }),
	KeyEvalDirect:       boolSetting(func(c *Config) *bool { return &c.EvalDirect }),
	KeySplitView:        boolSetting(func(c *Config) *bool { return &c.SplitView }),
	KeyRISSampleCount:   uintSetting(func(c *Config) *uint32 { return &c.RISSampleCount }),
	KeyTemporalMaxM:     uintSetting(func(c *Config) *uint32 { return &c.TemporalMaxM }),
	KeySpatialNeighbors: uintSetting(func(c *Config) *uint32 { return &c.SpatialNeighbors }),
	KeySpatialMaxM:      uintSetting(func(c *Config) *uint32 { return &c.SpatialMaxM }),
	KeyMaxBounces:       uintSetting(func(c *Config) *uint32 { return &c.MaxBounces }),
	KeySpatialRadius:    floatSetting(func(c *Config) *float32 { return &c.SpatialRadius }),
	KeyDepthThreshold:   floatSetting(func(c *Config) *float32 { return &c.DepthThreshold }),
	KeyNormalThreshold:  floatSetting(func(c *Config) *float32 { return &c.NormalThreshold }),
	KeyRussianRoulette:  floatSetting(func(c *Config) *float32 { return &c.RussianRoulette }),
}

// Settings returns the config as a key/value map suitable for scripting
// and serialization.
func (c Config) Settings() map[string]any {
	m := make(map[string]any, len(settingsTable))
	for k, s := range settingsTable {
		m[k] = s.get(&c)
	}
	return m
}

// ApplySettings returns a copy of c with the values of m applied.
//
// Booleans, integers, floats and their string forms are coerced to the
// field type. Unknown keys are ignored with a warning. A known key with a
// value that cannot be coerced fails with ErrInvalidConfig and c is
// returned unchanged. The result is not validated.
func (c Config) ApplySettings(m map[string]any) (Config, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := c
	for _, k := range keys {
		s, ok := settingsTable[k]
		if !ok {
			Logger().Warn("restir: ignoring unknown setting", "key", k)
			continue
		}
		if err := s.set(&out, m[k]); err != nil {
			return c, fmt.Errorf("%w: setting %q: %w", ErrInvalidConfig, k, err)
		}
	}
	return out, nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("want bool, got %T", v)
}

func toUint(v any, limit uint64) (uint64, error) {
	var u uint64
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		u = uint64(n)
	case int32:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		u = uint64(n)
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		u = uint64(n)
	case uint:
		u = uint64(n)
	case uint32:
		u = uint64(n)
	case uint64:
		u = n
	case float32:
		return toUint(float64(n), limit)
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not a non-negative integer", n)
		}
		if n > float64(limit) {
			return 0, fmt.Errorf("value %v out of range", n)
		}
		u = uint64(n)
	case string:
		p, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return 0, err
		}
		u = p
	default:
		return 0, fmt.Errorf("want unsigned integer, got %T", v)
	}
	if u > limit {
		return 0, fmt.Errorf("value %d out of range", u)
	}
	return u, nil
}

func toFloat(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case uint32:
		return float32(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 32)
		return float32(f), err
	}
	return 0, fmt.Errorf("want number, got %T", v)
}
