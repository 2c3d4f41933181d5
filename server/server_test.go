package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/metrics"
	"github.com/o0olele/octree-nav/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, *navigation.Manager) {
	opts := navigation.DefaultOptions()
	opts.Build.WorldBounds = geometry.AABB{Extents: math32.Splat(16)}
	opts.Build.MaxDepth = 5
	reporter := metrics.NewReporter()
	m := navigation.NewManager(opts, reporter)
	return New(m, reporter), m
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func buildCube(t *testing.T, h http.Handler) {
	rec := do(t, h, "POST", "/api/colliders", ColliderRequest{
		ID:    "cube",
		Shape: geometry.NewBoxShape(math32.Vector3{}, math32.Splat(2)),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, "POST", "/api/build", BuildRequest{Wait: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info struct {
		Status     string `json:"status"`
		Generation string `json:"generation"`
	}
	decode(t, rec, &info)
	require.Equal(t, "succeeded", info.Status)
	require.NotEmpty(t, info.Generation)
}

func TestEndpointsRequireOctree(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()

	assert.Equal(t, http.StatusConflict, do(t, h, "GET", "/api/octree", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "GET", "/api/octree/stats", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "GET", "/api/leaf?x=0&y=0&z=0", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "POST", "/api/pathfind", PathfindRequest{}).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "POST", "/api/requests/process", nil).Code)
}

func TestCollidersEndpoints(t *testing.T) {
	s, m := newTestServer()
	h := s.Handler()

	rec := do(t, h, "POST", "/api/colliders", []ColliderRequest{
		{ID: "a", Shape: geometry.NewBoxShape(math32.Vector3{}, math32.Splat(1))},
		{Shape: geometry.NewBoxShape(math32.Vec3(5, 0, 0), math32.Splat(1))},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var added struct {
		IDs []string `json:"ids"`
	}
	decode(t, rec, &added)
	require.Len(t, added.IDs, 2)
	assert.Equal(t, "a", added.IDs[0])
	assert.NotEmpty(t, added.IDs[1])
	assert.Equal(t, 2, m.Registry().Len())

	rec = do(t, h, "GET", "/api/colliders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	decode(t, rec, &list)
	assert.Len(t, list, 2)

	assert.Equal(t, http.StatusOK, do(t, h, "DELETE", "/api/colliders/a", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/colliders/a", nil).Code)
	assert.Equal(t, 1, m.Registry().Len())

	rec = do(t, h, "POST", "/api/colliders?queue=true", ColliderRequest{ID: "queued"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, m.Registry().Len(), "queued colliders wait for the next sync tick")
	m.Syncer().Tick()
	assert.Equal(t, 2, m.Registry().Len())

	rec = do(t, h, "POST", "/api/colliders", ColliderRequest{ID: strings.Repeat("x", 200)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildValidation(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/build", BuildRequest{MaxDepth: 99}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/build", BuildRequest{MinNodeSize: -1}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/build/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/build/00000000-0000-0000-0000-000000000001", nil).Code)

	rec := do(t, h, "POST", "/api/build", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var info struct {
		ID string `json:"id"`
	}
	decode(t, rec, &info)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/build/"+info.ID, nil).Code)
}

func TestQueryEndpoints(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()
	buildCube(t, h)

	rec := do(t, h, "GET", "/api/leaf?x=0&y=0&z=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var leaf struct {
		Index int32  `json:"index"`
		Type  string `json:"type"`
	}
	decode(t, rec, &leaf)
	assert.Equal(t, "blocked", leaf.Type)

	rec = do(t, h, "GET", "/api/leaf?x=99&y=0&z=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &leaf)
	assert.Equal(t, int32(-1), leaf.Index)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/leaf?x=a&y=0&z=0", nil).Code)

	rec = do(t, h, "GET", "/api/neighbors/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/neighbors/100000", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/neighbors/-1", nil).Code)
	// 2^32 would wrap to the root if truncated
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/neighbors/4294967296", nil).Code)

	rec = do(t, h, "GET", "/api/octree/leaves?free=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var leaves struct {
		Nodes []struct {
			Type string `json:"type"`
		} `json:"nodes"`
	}
	decode(t, rec, &leaves)
	require.NotEmpty(t, leaves.Nodes)
	for _, n := range leaves.Nodes {
		assert.Equal(t, "blocked", n.Type)
	}

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/octree", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/octree/stats", nil).Code)
}

func TestPathEndpoints(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()
	buildCube(t, h)

	rec := do(t, h, "POST", "/api/pathfind", PathfindRequest{
		Start: math32.Vec3(-12, 0.5, 0.5),
		End:   math32.Vec3(12, 0.5, 0.5),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PathfindResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Found)
	assert.Equal(t, len(resp.Path), resp.Length)
	assert.GreaterOrEqual(t, resp.Length, 2)

	rec = do(t, h, "POST", "/api/pathfind", PathfindRequest{End: math32.Vec3(12, 0, 0)})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.False(t, resp.Found)
	assert.Empty(t, resp.Path)
	assert.NotEmpty(t, resp.Error)

	rec = do(t, h, "POST", "/api/requests", navigation.PathRequest{
		Entity: "drone",
		Start:  math32.Vec3(-12, -12, -12),
		End:    math32.Vec3(12, 12, 12),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/paths/drone", nil).Code)

	rec = do(t, h, "POST", "/api/requests/process", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var processed struct {
		Processed int `json:"processed"`
		Pending   int `json:"pending"`
	}
	decode(t, rec, &processed)
	assert.Equal(t, 1, processed.Processed)
	assert.Equal(t, 0, processed.Pending)

	start := navigation.Agent{Position: math32.Vec3(-12, -12, -12)}
	rec = do(t, h, "POST", "/api/paths/drone/step", StepRequest{Agent: start, DeltaTime: 0.1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var step StepResponse
	decode(t, rec, &step)
	assert.False(t, step.Done)
	moved := step.Agent.Position.Distance(start.Position)
	assert.InDelta(t, navigation.DefaultPathFollow().Speed*0.1, moved, 1e-3, "moves at the configured speed")
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/paths/drone/step", StepRequest{Agent: start}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/api/paths/ghost/step", StepRequest{Agent: start, DeltaTime: 0.1}).Code)

	rec = do(t, h, "GET", "/api/paths/drone?take=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result navigation.PathResult
	decode(t, rec, &result)
	assert.Equal(t, "drone", result.Entity)
	assert.NotEmpty(t, result.Waypoints)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/paths/drone", nil).Code)
}

func TestSaveLoadEndpoints(t *testing.T) {
	s, m := newTestServer()
	h := s.Handler()
	buildCube(t, h)
	nodes := m.Current().Tree.Len()

	filename := filepath.Join(t.TempDir(), "nav.oct")
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/save", SaveRequest{}).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/save", SaveRequest{NavigationFilename: filename, Compress: true}).Code)

	rec := do(t, h, "GET", "/api/navigation/info?filename="+filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		NodeCount int `json:"node_count"`
	}
	decode(t, rec, &info)
	assert.Equal(t, nodes, info.NodeCount)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/navigation/info", nil).Code)

	other, om := newTestServer()
	oh := other.Handler()
	assert.Equal(t, http.StatusBadRequest, do(t, oh, "POST", "/api/load", LoadRequest{}).Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, oh, "POST", "/api/load", LoadRequest{NavigationFilename: filename + ".missing"}).Code)
	require.Equal(t, http.StatusOK, do(t, oh, "POST", "/api/load", LoadRequest{NavigationFilename: filename}).Code)
	require.NotNil(t, om.Current())
	assert.Equal(t, m.Current().Tree.Nodes, om.Current().Tree.Nodes)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()
	buildCube(t, h)

	rec := do(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "octree_nav_octree_builds_total")
}
