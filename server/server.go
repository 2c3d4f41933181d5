package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/o0olele/octree-nav/collider"
	"github.com/o0olele/octree-nav/geometry"
	"github.com/o0olele/octree-nav/logger"
	"github.com/o0olele/octree-nav/math32"
	"github.com/o0olele/octree-nav/metrics"
	"github.com/o0olele/octree-nav/navigation"
	"github.com/o0olele/octree-nav/octree"
	"github.com/o0olele/octree-nav/query"
	"github.com/rs/cors"
	"go.uber.org/zap"
	validator "gopkg.in/go-playground/validator.v9"
)

// Server exposes a navigation manager over HTTP.
type Server struct {
	manager  *navigation.Manager
	reporter *metrics.Reporter
	validate *validator.Validate
}

// New creates a server. reporter may be nil, in which case /metrics is not
// served.
func New(manager *navigation.Manager, reporter *metrics.Reporter) *Server {
	return &Server{
		manager:  manager,
		reporter: reporter,
		validate: validator.New(),
	}
}

// Handler returns the routed, CORS wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/colliders", s.addCollidersHandler).Methods("POST")
	api.HandleFunc("/colliders", s.listCollidersHandler).Methods("GET")
	api.HandleFunc("/colliders/{id}", s.removeColliderHandler).Methods("DELETE")
	api.HandleFunc("/build", s.buildOctreeHandler).Methods("POST")
	api.HandleFunc("/build/{id}", s.buildStatusHandler).Methods("GET")
	api.HandleFunc("/octree", s.getOctreeHandler).Methods("GET")
	api.HandleFunc("/octree/leaves", s.getLeavesHandler).Methods("GET")
	api.HandleFunc("/octree/stats", s.getStatsHandler).Methods("GET")
	api.HandleFunc("/leaf", s.findLeafHandler).Methods("GET")
	api.HandleFunc("/neighbors/{index}", s.neighborsHandler).Methods("GET")
	api.HandleFunc("/pathfind", s.findPathHandler).Methods("POST")
	api.HandleFunc("/requests", s.submitRequestHandler).Methods("POST")
	api.HandleFunc("/requests/process", s.processRequestsHandler).Methods("POST")
	api.HandleFunc("/paths/{entity}", s.getPathHandler).Methods("GET")
	api.HandleFunc("/paths/{entity}/step", s.stepPathHandler).Methods("POST")
	api.HandleFunc("/save", s.saveHandler).Methods("POST")
	api.HandleFunc("/load", s.loadHandler).Methods("POST")
	api.HandleFunc("/navigation/info", s.getNavigationInfoHandler).Methods("GET")

	if s.reporter != nil {
		r.Handle("/metrics", s.reporter.Handler()).Methods("GET")
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// ColliderRequest registers one collider. An empty id gets a new uuid.
type ColliderRequest struct {
	ID     string                 `json:"id" validate:"max=128"`
	Shape  geometry.ColliderShape `json:"shape"`
	Layers uint32                 `json:"layers"`
}

// BuildRequest overrides the configured build parameters; zero fields keep
// the configured value.
type BuildRequest struct {
	Bounds      *geometry.AABB `json:"bounds,omitempty"`
	MinNodeSize float32        `json:"min_node_size" validate:"gte=0"`
	MaxDepth    int32          `json:"max_depth" validate:"gte=0,lte=30"`
	Mask        uint32         `json:"mask"`
	MaxNodes    int            `json:"max_nodes" validate:"gte=0"`
	// Wait blocks the request until the build finishes.
	Wait bool `json:"wait"`
}

// PathfindRequest is a synchronous path query.
type PathfindRequest struct {
	Start math32.Vector3 `json:"start"`
	End   math32.Vector3 `json:"end"`
}

// PathfindResponse is the answer to a PathfindRequest.
type PathfindResponse struct {
	Path       []math32.Vector3 `json:"path"`
	Found      bool             `json:"found"`
	Length     int              `json:"length"`
	Iterations int              `json:"iterations"`
	Cost       float32          `json:"cost"`
	Generation uuid.UUID        `json:"generation"`
	Error      string           `json:"error,omitempty"`
}

// StepRequest advances an agent along an entity's path.
type StepRequest struct {
	Agent     navigation.Agent `json:"agent"`
	Index     int              `json:"index" validate:"min=0"`
	DeltaTime float32          `json:"dt" validate:"gt=0,lte=1"`
}

// StepResponse is the agent state after a StepRequest.
type StepResponse struct {
	Agent navigation.Agent `json:"agent"`
	Index int              `json:"index"`
	Done  bool             `json:"done"`
}

// SaveRequest names the file the current octree is written to.
type SaveRequest struct {
	NavigationFilename string `json:"navigation_filename" validate:"required"`
	Compress           bool   `json:"compress,omitempty"`
}

// LoadRequest names the octree file to publish.
type LoadRequest struct {
	NavigationFilename string `json:"navigation_filename" validate:"required"`
}

func (s *Server) addCollidersHandler(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var reqs []ColliderRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		var one ColliderRequest
		if err := json.Unmarshal(raw, &one); err != nil {
			http.Error(w, "Invalid collider data", http.StatusBadRequest)
			return
		}
		reqs = []ColliderRequest{one}
	}

	queued := r.URL.Query().Get("queue") == "true"
	ids := make([]string, 0, len(reqs))
	for i := range reqs {
		if err := s.validate.Struct(&reqs[i]); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if reqs[i].ID == "" {
			reqs[i].ID = uuid.New().String()
		}
	}
	for _, req := range reqs {
		id := collider.ID(req.ID)
		if queued {
			err := s.manager.EnqueueCollider(collider.UpdateRequest{ID: id, Shape: req.Shape, Layers: req.Layers})
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		} else {
			s.manager.UpsertCollider(id, req.Shape, req.Layers)
		}
		ids = append(ids, req.ID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "added",
		"queued": queued,
		"ids":    ids,
	})
}

func (s *Server) listCollidersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Registry().Snapshot())
}

func (s *Server) removeColliderHandler(w http.ResponseWriter, r *http.Request) {
	id := collider.ID(mux.Vars(r)["id"])
	if !s.manager.RemoveCollider(id) {
		http.Error(w, "Collider not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) buildOctreeHandler(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := s.manager.Options().Build
	if req.Bounds != nil {
		params.WorldBounds = *req.Bounds
	}
	if req.MinNodeSize > 0 {
		params.MinNodeSize = req.MinNodeSize
	}
	if req.MaxDepth > 0 {
		params.MaxDepth = req.MaxDepth
	}
	if req.Mask != 0 {
		params.ObstacleMask = req.Mask
	}
	if req.MaxNodes > 0 {
		params.MaxNodes = req.MaxNodes
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.manager.RequestBuild(context.Background(), params)
	if !req.Wait {
		writeJSON(w, http.StatusAccepted, job.Info())
		return
	}
	if _, err := job.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, http.StatusOK, job.Info())
}

func (s *Server) buildStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid build id", http.StatusBadRequest)
		return
	}
	job, ok := s.manager.BuildJob(id)
	if !ok {
		http.Error(w, "Build not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Info())
}

// current writes a 409 and returns nil when nothing is published yet.
func (s *Server) current(w http.ResponseWriter) *navigation.Generation {
	gen := s.manager.Current()
	if gen == nil {
		http.Error(w, "Octree not built", http.StatusConflict)
	}
	return gen
}

func (s *Server) getOctreeHandler(w http.ResponseWriter, r *http.Request) {
	gen := s.current(w)
	if gen == nil {
		return
	}
	data, err := gen.Tree.ToJSON()
	if err != nil {
		http.Error(w, "Failed to serialize octree", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) getLeavesHandler(w http.ResponseWriter, r *http.Request) {
	gen := s.current(w)
	if gen == nil {
		return
	}

	q := r.URL.Query()
	filter := octree.DefaultExportFilter()
	filter.FreeLeaves = boolParam(q.Get("free"), filter.FreeLeaves)
	filter.BlockedLeaves = boolParam(q.Get("blocked"), filter.BlockedLeaves)
	filter.Branches = boolParam(q.Get("branches"), filter.Branches)
	filter.LeavesOnly = !filter.Branches
	if v := q.Get("max_depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid max_depth", http.StatusBadRequest)
			return
		}
		filter.MaxDepth = int32(depth)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generation": gen.ID,
		"nodes":      gen.Tree.Export(filter),
	})
}

func (s *Server) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	gen := s.current(w)
	if gen == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generation": gen,
		"stats":      gen.Query.GetStats(),
		"leaf_cache": gen.LeafCacheStats(),
		"colliders":  s.manager.Registry().Len(),
		"pending":    s.manager.Pending(),
	})
}

func (s *Server) findLeafHandler(w http.ResponseWriter, r *http.Request) {
	gen := s.current(w)
	if gen == nil {
		return
	}

	q := r.URL.Query()
	var p [3]float32
	for i, key := range []string{"x", "y", "z"} {
		v, err := strconv.ParseFloat(q.Get(key), 32)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid %s", key), http.StatusBadRequest)
			return
		}
		p[i] = float32(v)
	}
	pos := math32.Vec3(p[0], p[1], p[2])

	var idx int32
	if boolParam(q.Get("skip_blocked"), false) {
		idx = gen.Tree.FindLeafNodeAtSkipBlocked(pos)
	} else {
		idx = gen.FindLeaf(pos)
	}

	resp := map[string]interface{}{"index": idx}
	if node := gen.Tree.Node(idx); node != nil {
		resp["type"] = node.Type
		resp["bounds"] = node.Bounds
		resp["depth"] = node.Depth
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) neighborsHandler(w http.ResponseWriter, r *http.Request) {
	gen := s.current(w)
	if gen == nil {
		return
	}
	parsed, err := strconv.ParseInt(mux.Vars(r)["index"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	index := int32(parsed)
	if gen.Tree.Node(index) == nil {
		http.Error(w, "Node not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":     index,
		"neighbors": gen.Tree.FindWalkableLeafNeighbors(index, make([]int32, 0, 6)),
	})
}

func (s *Server) findPathHandler(w http.ResponseWriter, r *http.Request) {
	var req PathfindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	res, err := s.manager.FindPath(req.Start, req.End)
	if errors.Is(err, query.ErrOctreeNotCreated) {
		http.Error(w, "Octree not built", http.StatusConflict)
		return
	}

	resp := PathfindResponse{
		Path:       res.Waypoints,
		Found:      res.Found(),
		Length:     len(res.Waypoints),
		Iterations: res.Iterations,
		Cost:       res.Cost,
		Generation: res.Generation,
		Error:      res.Error,
	}
	if resp.Path == nil {
		resp.Path = []math32.Vector3{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req navigation.PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	id, err := s.manager.Submit(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":      id,
		"pending": s.manager.Pending(),
	})
}

func (s *Server) processRequestsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.manager.ProcessRequests(r.Context())
	if errors.Is(err, query.ErrOctreeNotCreated) {
		http.Error(w, "Octree not built", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed": n,
		"pending":   s.manager.Pending(),
	})
}

func (s *Server) getPathHandler(w http.ResponseWriter, r *http.Request) {
	entity := mux.Vars(r)["entity"]
	var (
		res navigation.PathResult
		ok  bool
	)
	if boolParam(r.URL.Query().Get("take"), false) {
		res, ok = s.manager.TakePath(entity)
	} else {
		res, ok = s.manager.Path(entity)
	}
	if !ok {
		http.Error(w, "Path not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) stepPathHandler(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	agent := req.Agent
	next, done, ok := s.manager.StepAlongPath(mux.Vars(r)["entity"], &agent, req.Index, req.DeltaTime)
	if !ok {
		http.Error(w, "Path not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, StepResponse{Agent: agent, Index: next, Done: done})
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gen := s.current(w)
	if gen == nil {
		return
	}

	if err := octree.SaveFile(req.NavigationFilename, gen.Tree, req.Compress); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save octree: %v", err), http.StatusInternalServerError)
		return
	}
	logger.Info("octree saved",
		zap.String("file", req.NavigationFilename),
		zap.String("generation", gen.ID.String()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	begTime := time.Now()
	tree, err := octree.LoadFile(req.NavigationFilename)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load octree: %v", err), http.StatusInternalServerError)
		return
	}
	gen, err := s.manager.PublishTree(tree)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to publish octree: %v", err), http.StatusInternalServerError)
		return
	}
	logger.Info("octree loaded",
		zap.String("file", req.NavigationFilename),
		zap.Duration("elapsed", time.Since(begTime)))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "loaded",
		"generation": gen.ID,
		"stats":      gen.Query.GetStats(),
	})
}

func (s *Server) getNavigationInfoHandler(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		http.Error(w, "Missing filename parameter", http.StatusBadRequest)
		return
	}

	info, err := octree.GetFileInfo(filename)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get file info: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func boolParam(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
