// Package http exposes the hand-off and review services over HTTP/JSON.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/realtime"
	"vehirent-backend/internal/security"
	"vehirent-backend/internal/storage"
)

// Handlers bundles everything the router mounts. Files and Hub are optional.
type Handlers struct {
	Handoffs *HandoffHandler
	Reviews  *ReviewHandler
	Files    *FileHandler
	Hub      *realtime.Hub
}

// NewRouter registers every route under /api/v1 behind the logging and auth middleware.
func NewRouter(h Handlers, tokens security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(NewAuthMiddleware(tokens).Wrap)

	api.HandleFunc("/health", health).Methods(http.MethodGet).Name(config.RouteHealth)
	if h.Files != nil {
		api.HandleFunc("/files", h.Files.Download).Methods(http.MethodGet).Name(config.RouteFileDownload)
	}

	api.HandleFunc("/reservations/{reservationId}/handoffs/{kind}", h.Handoffs.Start).Methods(http.MethodPost).Name(config.RouteStartHandoff)
	api.HandleFunc("/reservations/{reservationId}/reconciliation", h.Handoffs.Reconcile).Methods(http.MethodGet).Name(config.RouteReconcile)
	api.HandleFunc("/reservations/{reservationId}/reviews", h.Reviews.Submit).Methods(http.MethodPost).Name(config.RouteSubmitReview)
	api.HandleFunc("/reservations/{reservationId}/reviews", h.Reviews.List).Methods(http.MethodGet).Name(config.RouteListReviews)

	ho := api.PathPrefix("/handoffs/{kind}/{eventId}").Subrouter()
	ho.HandleFunc("", h.Handoffs.Get).Methods(http.MethodGet).Name(config.RouteGetHandoff)
	ho.HandleFunc("/photos/skip", h.Handoffs.SkipPhotos).Methods(http.MethodPost).Name(config.RouteSkipPhotos)
	ho.HandleFunc("/photos/{slot}", h.Handoffs.CapturePhoto).Methods(http.MethodPost, http.MethodPut).Name(config.RouteCapturePhoto)
	ho.HandleFunc("/conditions", h.Handoffs.SaveConditions).Methods(http.MethodPut).Name(config.RouteSaveConditions)
	ho.HandleFunc("/conditions/skip", h.Handoffs.SkipConditions).Methods(http.MethodPost).Name(config.RouteSkipConditions)
	ho.HandleFunc("/damages", h.Handoffs.ReportDamage).Methods(http.MethodPost).Name(config.RouteReportDamage)
	ho.HandleFunc("/damages/done", h.Handoffs.FinishDamages).Methods(http.MethodPost).Name(config.RouteFinishDamages)
	ho.HandleFunc("/keys", h.Handoffs.ExchangeKeys).Methods(http.MethodPut).Name(config.RouteExchangeKeys)
	ho.HandleFunc("/signatures", h.Handoffs.AddSignature).Methods(http.MethodPost).Name(config.RouteAddSignature)
	ho.HandleFunc("/finalize", h.Handoffs.Finalize).Methods(http.MethodPost).Name(config.RouteFinalizeHandoff)
	ho.HandleFunc("/prior-damages", h.Handoffs.PriorDamages).Methods(http.MethodGet).Name(config.RoutePriorDamages)

	if h.Hub != nil {
		api.HandleFunc("/ws", progressFeed(h.Hub)).Methods(http.MethodGet).Name(config.RouteProgressWebsocket)
	}
	return router
}

func health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// progressFeed attaches the authenticated user's websocket to the hub.
func progressFeed(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		hub.ServeWS(w, r, userID)
	}
}

// LocalFiles returns the file handler when blobs are kept on the local filesystem.
func LocalFiles(blobs storage.BlobStore) *FileHandler {
	if local, ok := blobs.(*storage.LocalStorage); ok {
		return NewFileHandler(local)
	}
	return nil
}
