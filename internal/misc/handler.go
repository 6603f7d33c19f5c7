package misc

import (
	"net/http"

	"github.com/2beens/notesapp/pkg"

	"github.com/gorilla/mux"
)

// StoreStatus is what the health endpoint reports about the notes store.
type StoreStatus interface {
	Loaded() bool
	Count() int
}

type HealthResponse struct {
	Status         string `json:"status"`
	StorageBackend string `json:"storageBackend"`
	Loaded         bool   `json:"loaded"`
	Notes          int    `json:"notes"`
}

type Handler struct {
	store          StoreStatus
	storageBackend string
	versionInfo    string
}

func NewHandler(store StoreStatus, storageBackend, versionInfo string) *Handler {
	return &Handler{
		store:          store,
		storageBackend: storageBackend,
		versionInfo:    versionInfo,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:         "ok",
		StorageBackend: handler.storageBackend,
		Loaded:         handler.store.Loaded(),
		Notes:          handler.store.Count(),
	}

	status := http.StatusOK
	if !resp.Loaded {
		resp.Status = "loading"
		status = http.StatusServiceUnavailable
	}

	pkg.WriteJSON(w, status, resp)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	if handler.versionInfo == "" {
		pkg.WriteTextResponseOK(w, "unknown")
		return
	}
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
