package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/config"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/diagnose"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/engine"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/hierarchy"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/metrics"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/query"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/storage"
)

// maxSceneFileSize bounds the body of POST /v1/scene/import.
const maxSceneFileSize = 32 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil,
// in which case config reload is unavailable.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}", h.removeNode)
	h.mux.HandleFunc("GET /v1/nodes/{id}/referenced", h.referencedNodes)
	h.mux.HandleFunc("GET /v1/nodes/{id}/referencing", h.referencingNodes)
	h.mux.HandleFunc("GET /v1/nodes/{id}/children", h.childrenNodes)
	h.mux.HandleFunc("POST /v1/scene/import", h.importScene)
	h.mux.HandleFunc("GET /v1/scene/export", h.exportScene)
	h.mux.HandleFunc("POST /v1/scene/clear", h.clearScene)
	h.mux.HandleFunc("GET /v1/scene/diagnostics", h.diagnostics)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

func views(nodes []mrml.Node) []query.Env {
	out := make([]query.Env, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, query.EnvFor(n))
	}
	return out
}

// GET /v1/nodes?class=&filter=: list nodes in scene order.
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("class")
	var filter *query.Filter
	if src := r.URL.Query().Get("filter"); src != "" {
		f, err := query.Compile(src)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = f
	}

	var out []query.Env
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		nodes := s.Nodes()
		if class != "" {
			nodes = s.NodesByClass(class)
		}
		for _, n := range nodes {
			if filter != nil {
				ok, err := filter.Match(n)
				if err != nil {
					return errorf(http.StatusBadRequest, "%s", err)
				}
				if !ok {
					continue
				}
			}
			out = append(out, query.EnvFor(n))
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	if out == nil {
		out = []query.Env{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "nodes": out})
}

// GET /v1/nodes/{id}
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var view query.Env
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		n := s.NodeByID(id)
		if n == nil {
			return errNodeNotFound(id)
		}
		view = query.EnvFor(n)
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DELETE /v1/nodes/{id}: references to the node are left in place; they
// show up as dangling in diagnostics.
func (h *Handler) removeNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		if !s.RemoveNodeByID(id) {
			return errNodeNotFound(id)
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

// GET /v1/nodes/{id}/referenced: the node and everything it reaches
// through references.
func (h *Handler) referencedNodes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var out []query.Env
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		n := s.NodeByID(id)
		if n == nil {
			return errNodeNotFound(id)
		}
		out = views(s.ReferencedNodes(n))
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "nodes": out})
}

type referenceView struct {
	NodeID string `json:"node_id"`
	Role   string `json:"role"`
	Index  int    `json:"index"`
}

// GET /v1/nodes/{id}/referencing: every (node, role, index) holding the
// ID. The ID need not resolve.
func (h *Handler) referencingNodes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	out := []referenceView{}
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		for _, loc := range s.ReferencesTo(id) {
			out = append(out, referenceView{NodeID: loc.Node.Base().ID(), Role: loc.Role, Index: loc.Index})
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"target_id": id, "references": out})
}

// GET /v1/nodes/{id}/children: hierarchy children in sibling order.
func (h *Handler) childrenNodes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var out []query.Env
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		n := s.NodeByID(id)
		if n == nil {
			return errNodeNotFound(id)
		}
		hn, ok := n.(*hierarchy.Node)
		if !ok {
			return errorf(http.StatusBadRequest, "node %q is a %s, not a hierarchy node", id, n.ClassName())
		}
		for _, c := range hn.ChildrenNodes() {
			out = append(out, query.EnvFor(c))
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	if out == nil {
		out = []query.Env{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "nodes": out})
}

// POST /v1/scene/import: body is a scene file.
func (h *Handler) importScene(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSceneFileSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("read body: %s", err))
		return
	}
	var (
		remap       map[string]string
		read, added int
	)
	err = h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		nodes, err := storage.Read(bytes.NewReader(body), s)
		if err != nil {
			return errorf(http.StatusBadRequest, "%s", err)
		}
		read = len(nodes)
		before := s.NumberOfNodes()
		remap = s.Import(nodes)
		added = s.NumberOfNodes() - before
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"read":  read,
		"added": added,
		"remap": remap,
	})
}

// GET /v1/scene/export[?node=id]: the whole scene, or the sub-scene
// reachable from one node.
func (h *Handler) exportScene(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("node")
	var buf bytes.Buffer
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		if id == "" {
			return storage.WriteScene(&buf, s)
		}
		n := s.NodeByID(id)
		if n == nil {
			return errNodeNotFound(id)
		}
		return storage.ExportReferenced(&buf, s, n)
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// POST /v1/scene/clear[?singletons=true]
func (h *Handler) clearScene(w http.ResponseWriter, r *http.Request) {
	removeSingletons := false
	if v := r.URL.Query().Get("singletons"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid singletons value %q", v))
			return
		}
		removeSingletons = b
	}
	var left int
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		s.Clear(removeSingletons)
		left = s.NumberOfNodes()
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true, "remaining": left})
}

// GET /v1/scene/diagnostics: dangling references and reference cycles.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	var rep diagnose.Report
	err := h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		rep = diagnose.Check(s)
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	if rep.Dangling == nil {
		rep.Dangling = []diagnose.Dangling{}
	}
	if rep.Cycles == nil {
		rep.Cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       rep.OK(),
		"dangling": rep.Dangling,
		"cycles":   rep.Cycles,
	})
}

// POST /v1/config/reload: re-read the config file and apply its scene
// section.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotFound, "server runs without a config file")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	err = h.eng.Do(r.Context(), func(s *mrml.Scene) error {
		if err := engine.Configure(s, cfg.Scene); err != nil {
			return errorf(http.StatusUnprocessableEntity, "%s", err)
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":        true,
		"classes_count":   len(cfg.Scene.Classes),
		"singleton_merge": cfg.Scene.SingletonMerge,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the scene queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
