package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/o0olele/octree-nav/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, 5, c.GetInt("octree.maxdepth"))
	assert.Equal(t, float32(1), c.GetFloat32("octree.minnodesize"))
	assert.Equal(t, math32.Vec3(50, 10, 50), c.GetVector3("octree.bounds.extents"))
	assert.Equal(t, 250, c.GetInt("sync.warmupticks"))
	assert.Equal(t, 20*time.Millisecond, c.GetDuration("sync.interval"))
	assert.Equal(t, 2, c.GetInt("pathfind.iterationfactor"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OCTREE_NAV_OCTREE_MAXDEPTH", "9")
	c := NewConfig()
	assert.Equal(t, 9, c.GetInt("octree.maxdepth"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.yaml")
	content := []byte(`
octree:
  minnodesize: 0.5
  bounds:
    extents: [60, 60, 60]
    center:
      x: 1
      y: 2
      z: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), c.GetFloat32("octree.minnodesize"))
	assert.Equal(t, math32.Vec3(60, 60, 60), c.GetVector3("octree.bounds.extents"))
	assert.Equal(t, math32.Vec3(1, 2, 3), c.GetVector3("octree.bounds.center"))
	assert.Equal(t, 5, c.GetInt("octree.maxdepth"), "unset keys keep defaults")
}

func TestLoadFileMapVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.yaml")
	content := []byte(`
octree:
  bounds:
    extents: {x: 60, y: 20, z: 40}
sync:
  bounds:
    center: {x: -1.5, y: 2.5, z: 0}
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, math32.Vec3(60, 20, 40), c.GetVector3("octree.bounds.extents"))
	assert.Equal(t, math32.Vec3(-1.5, 2.5, 0), c.GetVector3("sync.bounds.center"))
}

func TestGetVector3Forms(t *testing.T) {
	c := NewConfig()
	c.Set("a", []interface{}{1, "2", 3.5})
	c.Set("b", map[string]interface{}{"x": 1, "y": 2, "z": 3})
	c.Set("c", []float64{1, 2})
	assert.Equal(t, math32.Vec3(1, 2, 3.5), c.GetVector3("a"))
	assert.Equal(t, math32.Vec3(1, 2, 3), c.GetVector3("b"))
	assert.Equal(t, math32.Vector3{}, c.GetVector3("c"), "wrong length")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
