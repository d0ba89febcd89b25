package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// statusServer exposes a read-only diagnostic surface on control-port+200.
// It has no bearing on the control or sync protocols — loopback/trusted-
// network use only, no auth (SPEC_FULL.md §6).
func newStatusServer(t *Tracker) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", t.handleHealthz).Methods("GET")
	r.HandleFunc("/debug/groups", t.handleDebugGroups).Methods("GET")
	r.HandleFunc("/debug/sync", t.handleDebugSync).Methods("GET")

	return &http.Server{Handler: r}
}

func (t *Tracker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !t.serving.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "not serving")
		return
	}
	fmt.Fprintln(w, "ok")
}

func (t *Tracker) handleDebugGroups(w http.ResponseWriter, r *http.Request) {
	t.dir.groupsMu.RLock()
	defer t.dir.groupsMu.RUnlock()
	for _, g := range t.dir.groups {
		fmt.Fprintf(w, "%s owner=%s members=%d files=%d\n",
			g.GroupID, g.OwnerID, len(g.Members), len(g.Files))
	}
}

func (t *Tracker) handleDebugSync(w http.ResponseWriter, r *http.Request) {
	t.link.mu.Lock()
	connected := t.link.conn != nil
	t.link.mu.Unlock()
	if connected {
		fmt.Fprintln(w, "peer_sync: connected")
	} else {
		fmt.Fprintln(w, "peer_sync: disconnected")
	}
}
