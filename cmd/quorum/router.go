package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/KilimcininKorOglu/quorum/internal/cluster"
	"github.com/KilimcininKorOglu/quorum/internal/kv"
)

const (
	// keyTimeout bounds one /keys request, retries included.
	keyTimeout = 5 * time.Second

	maxValueSize = 1 << 20
)

// keyStore is what the /keys routes need from a cluster client.
type keyStore interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) (kv.Result, error)
	Delete(ctx context.Context, key string) (kv.Result, error)
}

type keyView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type nodeView struct {
	ID      string `json:"id"`
	Server  string `json:"server"`
	Client  string `json:"client"`
	Status  string `json:"status"`
	Leader  string `json:"leader,omitempty"`
	Clients int    `json:"clients"`
}

type clusterView struct {
	Leader string     `json:"leader,omitempty"`
	Nodes  []nodeView `json:"nodes"`
}

func viewOf(n *cluster.Node) nodeView {
	v := nodeView{
		ID:      n.ID(),
		Server:  n.ServerEndpoint().String(),
		Client:  n.ClientEndpoint().String(),
		Status:  n.Status().String(),
		Clients: n.Clients(),
	}
	if ep, ok := n.LeaderEndpoint(); ok {
		v.Leader = ep.String()
	}
	return v
}

// newRouter routes the HTTP surface of a served cluster. The /keys routes
// are served through store and left out when store is nil.
func newRouter(h *cluster.Harness, store keyStore, metrics bool) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", handleHealth(h)).Methods(http.MethodGet)
	r.HandleFunc("/cluster", handleCluster(h)).Methods(http.MethodGet)
	r.HandleFunc("/cluster/nodes/{id}", handleNode(h)).Methods(http.MethodGet)
	if store != nil {
		r.HandleFunc("/keys", handleKeys(store)).Methods(http.MethodGet)
		r.HandleFunc("/keys/{key}", handleGetKey(store)).Methods(http.MethodGet)
		r.HandleFunc("/keys/{key}", handlePutKey(store)).Methods(http.MethodPut)
		r.HandleFunc("/keys/{key}", handleDeleteKey(store)).Methods(http.MethodDelete)
	}
	if metrics {
		r.Handle("/metrics", h.Metrics().Handler()).Methods(http.MethodGet)
	}
	return r
}

func handleHealth(h *cluster.Harness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Leader() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no leader"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleCluster(h *cluster.Harness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := clusterView{Nodes: []nodeView{}}
		if l := h.Leader(); l != nil {
			view.Leader = l.ID()
		}
		for _, n := range h.Nodes() {
			view.Nodes = append(view.Nodes, viewOf(n))
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleNode(h *cluster.Harness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		for _, n := range h.Nodes() {
			if n.ID() == id {
				writeJSON(w, http.StatusOK, viewOf(n))
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "node not found"})
	}
}

func handleKeys(store keyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), keyTimeout)
		defer cancel()

		keys, err := store.Keys(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, http.StatusOK, keys)
	}
}

func handleGetKey(store keyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		ctx, cancel := context.WithTimeout(r.Context(), keyTimeout)
		defer cancel()

		value, found, err := store.Get(ctx, key)
		if err != nil {
			writeError(w, err)
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "key not found"})
			return
		}
		writeJSON(w, http.StatusOK, keyView{Key: key, Value: value})
	}
}

// handlePutKey stores the request body as the value.
func handlePutKey(store keyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), keyTimeout)
		defer cancel()
		if _, err := store.Put(ctx, key, string(body)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteKey(store keyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		ctx, cancel := context.WithTimeout(r.Context(), keyTimeout)
		defer cancel()

		res, err := store.Delete(ctx, key)
		if err != nil {
			writeError(w, err)
			return
		}
		if !res.Found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "key not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeError maps a client failure to a status. Deadlines mean the
// cluster had no reachable leader in time.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
