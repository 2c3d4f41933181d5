package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/o0olele/octree-nav/math32"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// OCTREE_NAV_OCTREE_MAXDEPTH=10.
const EnvPrefix = "octree_nav"

// Config wraps a viper instance with the module's defaults filled in.
type Config struct {
	config *viper.Viper
}

// NewConfig creates a config; the first viper passed in, if any, is used as
// the backing store.
func NewConfig(cfgs ...*viper.Viper) *Config {
	var cfg *viper.Viper
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	} else {
		cfg = viper.New()
	}

	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	c := &Config{config: cfg}
	c.fillDefaultValues()
	return c
}

// Load reads a config file (yaml, json, toml...) into a new Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return NewConfig(v), nil
}

func (c *Config) fillDefaultValues() {
	defaultsMap := map[string]interface{}{
		"server.addr":  ":8080",
		"server.pprof": "localhost:6060",

		// Defaults of the scene authoring component.
		"octree.bounds.center":  []float64{0, 0, 0},
		"octree.bounds.extents": []float64{50, 10, 50},
		"octree.minnodesize":    1.0,
		"octree.maxdepth":       5,
		"octree.mask":           1,
		"octree.maxnodes":       0,

		"pathfind.iterationfactor": 2,
		"pathfind.snapendpoints":   false,
		"pathfind.reopenclosed":    false,
		"pathfind.smooth":          false,
		"pathfind.workers":         4,
		"pathfind.queuesize":       1024,

		// Collider sync: first build after 250 ticks over a 60 unit world.
		"sync.interval":            "20ms",
		"sync.warmupticks":         250,
		"sync.rebuildticks":        0,
		"sync.bounds.center":       []float64{0, 0, 0},
		"sync.bounds.extents":      []float64{60, 60, 60},
		"sync.minnodesize":         0.5,
		"sync.maxdepth":            15,
		"sync.queuesize":           4096,
		"follow.speed":             5.0,
		"follow.rotationspeed":     180.0,
		"follow.arrivalthreshold":  0.5,
		"navigation.leafcachesize": 4096,

		"logger.level":      "info",
		"logger.dir":        "",
		"logger.rotation":   true,
		"logger.stdout":     true,
		"logger.maxsize":    100,
		"logger.maxage":     7,
		"logger.maxbackups": 10,
		"logger.localtime":  true,
		"logger.compress":   false,

		"metrics.enabled": true,
	}

	for param := range defaultsMap {
		c.config.SetDefault(param, defaultsMap[param])
	}
}

// Viper returns the backing viper instance.
func (c *Config) Viper() *viper.Viper {
	return c.config
}

// Set overrides a value.
func (c *Config) Set(key string, value interface{}) {
	c.config.Set(key, value)
}

// GetDuration returns a value from config
func (c *Config) GetDuration(s string) time.Duration {
	return c.config.GetDuration(s)
}

// GetString returns a value from config
func (c *Config) GetString(s string) string {
	return c.config.GetString(s)
}

// GetInt returns a value from config
func (c *Config) GetInt(s string) int {
	return c.config.GetInt(s)
}

// GetBool returns a value from config
func (c *Config) GetBool(s string) bool {
	return c.config.GetBool(s)
}

// GetFloat32 returns a value from config
func (c *Config) GetFloat32(s string) float32 {
	return float32(c.config.GetFloat64(s))
}

// GetVector3 reads a three element list, or a map with x/y/z keys.
func (c *Config) GetVector3(s string) math32.Vector3 {
	raw := c.config.Get(s)
	switch v := raw.(type) {
	case []float64:
		if len(v) == 3 {
			return math32.Vector3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
		}
	case []interface{}:
		if len(v) == 3 {
			return math32.Vector3{X: cast.ToFloat32(v[0]), Y: cast.ToFloat32(v[1]), Z: cast.ToFloat32(v[2])}
		}
	case map[string]interface{}:
		return math32.Vector3{X: cast.ToFloat32(v["x"]), Y: cast.ToFloat32(yValue(v)), Z: cast.ToFloat32(v["z"])}
	}
	return math32.Vector3{}
}

// yValue finds the y component of a map-form vector. YAML 1.1 reads a bare
// y key as the boolean true, which viper then stringifies.
func yValue(v map[string]interface{}) interface{} {
	if y, ok := v["y"]; ok {
		return y
	}
	return v["true"]
}
