package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/notifications"
	"github.com/openlar/openlar/repo"
)

var log = logging.MustGetLogger("API")

// GatewayConfig holds the options for the API gateway.
type GatewayConfig struct {
	Listener   net.Listener
	NoCors     bool
	AllowedIPs map[string]bool
	UseSSL     bool
	SSLCert    string
	SSLKey     string
}

// Gateway represents the HTTP/websocket API gateway. It serves the
// caller-scoped notification queries and the real-time fan-out.
type Gateway struct {
	listener net.Listener
	db       repo.Database
	state    *notifications.StateMachine
	cache    *notifications.WorkingSet
	queries  *notifications.Queries
	hub      *hub
	handler  http.Handler
	config   *GatewayConfig
}

// NewGateway instantiates a new gateway.
func NewGateway(db repo.Database, state *notifications.StateMachine, cache *notifications.WorkingSet, queries *notifications.Queries, config *GatewayConfig) *Gateway {
	g := &Gateway{
		db:       db,
		state:    state,
		cache:    cache,
		queries:  queries,
		config:   config,
		listener: config.Listener,
	}
	g.hub = newHub(cache, state)
	go g.hub.run()

	r := g.newRouter()
	if !config.NoCors {
		r.Use(g.CORSAllowAllOriginsMiddleware)
	}
	r.Use(g.AuthenticationMiddleware)
	g.handler = r
	return g
}

// Close shuts down the gateway listener and the websocket hub.
func (g *Gateway) Close() error {
	g.hub.stop()
	return g.listener.Close()
}

// Serve begins listening on the configured address.
func (g *Gateway) Serve() error {
	log.Infof("Gateway/API server listening on %s", g.listener.Addr())
	var err error
	if g.config.UseSSL {
		err = http.ServeTLS(g.listener, g.handler, g.config.SSLCert, g.config.SSLKey)
	} else {
		err = http.Serve(g.listener, g.handler)
	}
	return err
}

func (g *Gateway) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/notifications/shifts", requireRoles(g.handleGETShiftNotice, models.RoleManager, models.RoleCaretaker)).Methods("GET")
	r.HandleFunc("/notifications/shifts", requireRoles(g.handleDELETEShiftNotice, models.RoleManager, models.RoleCaretaker)).Methods("DELETE")
	r.HandleFunc("/notifications/messages", requireRoles(g.handleGETRelativeMessages, models.RoleRelative)).Methods("GET")
	r.HandleFunc("/notifications/messages", requireRoles(g.handleDELETERelativeMessages, models.RoleRelative)).Methods("DELETE")
	r.HandleFunc("/notifications/ws", requireRoles(g.handleWebsocket, models.RoleManager, models.RoleCaretaker)).Methods("GET")
	// Browser preflights must match a route or the middleware chain never
	// runs and the CORS headers are never written.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func writeJSONResponse(w http.ResponseWriter, v interface{}) {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}
