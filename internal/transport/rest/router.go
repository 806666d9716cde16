package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harikrishna-au/codetogetherfull/internal/service"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/rest/handler"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/rest/middleware"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/ws"
)

// Container bundles everything the router needs.
type Container struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	Rooms    *service.RoomService
	Match    *service.MatchService
	Queues   *service.QueueService
	Gateway  *ws.Handler
	AdminKey string
}

// NewRouter wires the full HTTP surface: health, public auth and queue-depth
// endpoints, the WebSocket upgrade, the session-authenticated queue surface,
// and the key-gated admin surface.
func NewRouter(c *Container) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	sessionHandler := handler.NewSessionHandler(c.Auth, c.Sessions, c.Rooms, c.Match)
	queueHandler := handler.NewQueueHandler(c.Match)
	adminHandler := handler.NewAdminHandler(c.Queues, c.Sessions, c.Rooms, c.Match)

	v1 := r.PathPrefix("/v1").Subrouter()

	// public
	v1.HandleFunc("/auth/login", sessionHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/queue/counts", queueHandler.Counts).Methods(http.MethodGet)
	v1.HandleFunc("/ws", c.Gateway.ServeWS).Methods(http.MethodGet)

	// session-authenticated
	authed := v1.NewRoute().Subrouter()
	authed.Use(middleware.RequireSession(c.Auth, c.Sessions))
	authed.HandleFunc("/auth/logout", sessionHandler.Logout).Methods(http.MethodPost, http.MethodOptions)
	authed.HandleFunc("/auth/me", sessionHandler.Me).Methods(http.MethodGet)
	authed.HandleFunc("/sessions/me", sessionHandler.Me).Methods(http.MethodGet)
	authed.HandleFunc("/queue/join", queueHandler.Join).Methods(http.MethodPost, http.MethodOptions)
	authed.HandleFunc("/queue/leave", queueHandler.Leave).Methods(http.MethodPost, http.MethodOptions)
	authed.HandleFunc("/queue/position", queueHandler.Position).Methods(http.MethodGet)

	// admin
	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin(c.AdminKey))
	admin.HandleFunc("/queue/stats", adminHandler.QueueStats).Methods(http.MethodGet)
	admin.HandleFunc("/queue/contents/{difficulty}", adminHandler.QueueContents).Methods(http.MethodGet)
	admin.HandleFunc("/queue/clear/{difficulty}", adminHandler.ClearQueue).Methods(http.MethodPost)
	admin.HandleFunc("/queue/clear", adminHandler.ClearAllQueues).Methods(http.MethodPost)
	admin.HandleFunc("/rooms/active", adminHandler.ActiveRooms).Methods(http.MethodGet)
	admin.HandleFunc("/rooms/{roomId}/terminate", adminHandler.TerminateRoom).Methods(http.MethodPost)
	admin.HandleFunc("/sessions/reset", adminHandler.ResetSessions).Methods(http.MethodPost)
	admin.HandleFunc("/sessions/stats", adminHandler.SessionStats).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
