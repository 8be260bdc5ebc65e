package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bambui-io/bambui/internal/gateway/command"
	"github.com/bambui-io/bambui/internal/gateway/session"
)

// maxUploadSize bounds library uploads. Sliced plates for these machines
// are far below this.
const maxUploadSize = 256 << 20

type printerResponse struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	IP    string `json:"ip"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// lookup resolves the {printer} path variable, answering 404 itself when
// the name is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *session.Session {
	name := mux.Vars(r)["printer"]
	sess := s.registry.Get(name)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown printer "+name)
	}
	return sess
}

func (s *Server) handleListPrinters(w http.ResponseWriter, _ *http.Request) {
	identities := s.registry.Identities()
	printers := make([]printerResponse, 0, len(identities))
	for _, id := range identities {
		printers = append(printers, printerResponse{Name: id.Name, Model: id.Model, IP: id.IP})
	}
	writeJSON(w, http.StatusOK, printers)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	entries, err := sess.ListFiles(r.Context())
	if err != nil {
		s.logger.Error(err, "Failed to list printer files")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	name := mux.Vars(r)["name"]
	if err := sess.DeleteFile(r.Context(), name); err != nil {
		s.logger.Error(err, "Failed to delete printer file", "file", name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLibraryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.library.List(r.Context())
	if err != nil {
		s.logger.Error(err, "Failed to list library")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleLibraryUpload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.library.Put(r.Context(), name, data); err != nil {
		s.logger.Error(err, "Failed to store library file", "file", name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLibraryDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.library.Remove(r.Context(), name); err != nil {
		s.logger.Error(err, "Failed to delete library file", "file", name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLibraryPrint fetches a stored file and dispatches it as a print
// job, going through the same command path the websocket uses.
func (s *Server) handleLibraryPrint(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	name := mux.Vars(r)["name"]
	data, err := s.library.Get(r.Context(), name)
	if err != nil {
		s.logger.Error(err, "Failed to fetch library file", "file", name)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sess.Dispatch(r.Context(), command.PrintFile{FileName: name, File: data})
	w.WriteHeader(http.StatusAccepted)
}
