package notes_box

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/2beens/notesapp/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var ErrNoteNotFound = errors.New("note not found")

const maxRequestBodyBytes = 2 << 20

// Handler exposes the store to the web app over HTTP.
type Handler struct {
	store    *Store
	validate *validator.Validate
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store:    store,
		validate: newValidator(),
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/notes", handler.HandleList).Methods("GET", "OPTIONS").Name("list-notes")
	r.HandleFunc("/notes", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-note")
	r.HandleFunc("/notes", handler.HandleClearAll).Methods("DELETE").Name("clear-notes")
	r.HandleFunc("/notes/reload", handler.HandleReload).Methods("POST", "OPTIONS").Name("reload-notes")
	r.HandleFunc("/notes/{id}", handler.HandleGet).Methods("GET").Name("get-note")
	r.HandleFunc("/notes/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-note")
	r.HandleFunc("/notes/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-note")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	note, err := handler.store.CreateNote(r.Context())
	if err != nil {
		log.Errorf("failed to create note: %s", err)
		http.Error(w, "error, failed to create note", http.StatusInternalServerError)
		return
	}

	log.Printf("new note created: %s", note.ID)
	pkg.WriteJSON(w, http.StatusCreated, note)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	note, ok := handler.store.Get(id)
	if !ok {
		http.Error(w, ErrNoteNotFound.Error(), http.StatusNotFound)
		return
	}
	pkg.WriteJSON(w, http.StatusOK, note)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		log.Errorf("update note failed, read body: %s", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	var data UpdateData
	if err := json.Unmarshal(body, &data); err != nil {
		http.Error(w, "error, invalid update payload", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(data); err != nil {
		http.Error(w, fmt.Sprintf("error, invalid update payload: %s", err), http.StatusBadRequest)
		return
	}

	if err := handler.store.UpdateNote(r.Context(), id, data); err != nil {
		log.Errorf("failed to update note [%s]: %s", id, err)
		http.Error(w, "error, failed to update note", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "updated:"+id)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.store.DeleteNote(r.Context(), id); err != nil {
		log.Errorf("failed to delete note [%s]: %s", id, err)
		http.Error(w, "error, note not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted:"+id)
}

func (handler *Handler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := handler.store.ClearAll(r.Context()); err != nil {
		log.Errorf("failed to clear notes: %s", err)
		http.Error(w, "error, notes not cleared", http.StatusInternalServerError)
		return
	}

	log.Warnln("all notes cleared")
	pkg.WriteTextResponseOK(w, "cleared")
}

func (handler *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	handler.store.LoadFromStorage(r.Context())
	handler.HandleList(w, r)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, POST, DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	notes := handler.store.Notes()
	pkg.WriteJSON(w, http.StatusOK, NotesListResponse{
		Notes: notes,
		Total: len(notes),
	})
}
