package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/intake"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// Messages shown to the front end.
const (
	msgInvalidKind   = "Invalid data type"
	msgNoData        = "No data provided"
	msgNotFound      = "Item not found"
	msgSaveFailed    = "Failed to save data"
	msgMustBeJSON    = "Request must be JSON"
	msgBodyTooLarge  = "Request body too large"
	msgEntrySaved    = "Entry saved successfully"
	msgListEntryFail = "Failed to list journal entries"
)

func (s *Server) observe(store, op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveStore(store, op, result)
}

// ----------------------------------------------------------------------------
// Journal
// ----------------------------------------------------------------------------

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.journal.List(r.Context())
	s.observe("journal", "list", err)
	if err != nil {
		s.logger.Error("failed to list journal entries", zap.Error(err))
		writeJournalError(w, http.StatusInternalServerError, msgListEntryFail)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeJournalError(w, http.StatusBadRequest, msgMustBeJSON)
		return
	}

	in, err := intake.ReadJournalInput(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		status, msg := bodyError(err)
		writeJournalError(w, status, msg)
		return
	}

	res, err := s.journal.Save(r.Context(), in.SaveRequest())
	s.observe("journal", "save", err)
	if err != nil {
		if errors.Is(err, journal.ErrInvalidEntry) {
			writeJournalError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to save journal entry", zap.Error(err))
		writeJournalError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"id":      res.ID,
		"message": msgEntrySaved,
		"path":    res.Path,
	})
}

// ----------------------------------------------------------------------------
// Goals and tasks
// ----------------------------------------------------------------------------

// kindParam parses {kind}, writing a 400 when it is not goals or tasks.
func kindParam(w http.ResponseWriter, r *http.Request) (storage.Kind, bool) {
	kind, err := storage.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeListError(w, http.StatusBadRequest, msgInvalidKind)
		return "", false
	}
	return kind, true
}

func (s *Server) readItem(w http.ResponseWriter, r *http.Request) (storage.Item, bool) {
	item, err := intake.ReadItem(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		status, msg := bodyError(err)
		writeListError(w, status, msg)
		return nil, false
	}
	return item, true
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	out, err := s.lists.Get(r.Context(), kind)
	if err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	item, ok := s.readItem(w, r)
	if !ok {
		return
	}
	if err := s.lists.Add(r.Context(), kind, item); err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	item, ok := s.readItem(w, r)
	if !ok {
		return
	}
	if err := s.lists.Update(r.Context(), kind, chi.URLParam(r, "id"), item); err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	if err := s.lists.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	if err := s.lists.Complete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	if err := s.lists.Reactivate(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		s.writeListFailure(w, err)
		return
	}
	writeSuccess(w)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) writeListFailure(w http.ResponseWriter, err error) {
	var storageErr *lists.StorageError
	switch {
	case errors.Is(err, lists.ErrNotFound):
		writeListError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, lists.ErrInvalidItem):
		writeListError(w, http.StatusBadRequest, msgNoData)
	case errors.As(err, &storageErr):
		s.logger.Error("list storage failure", zap.String("op", storageErr.Op), zap.Error(storageErr.Err))
		writeListError(w, http.StatusInternalServerError, msgSaveFailed)
	default:
		s.logger.Error("list operation failed", zap.Error(err))
		writeListError(w, http.StatusInternalServerError, err.Error())
	}
}

// ----------------------------------------------------------------------------
// System
// ----------------------------------------------------------------------------

func (s *Server) handleSystemInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.root.Info()
	if err != nil {
		s.logger.Error("failed to read data folder info", zap.Error(err))
		writeJournalError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// isJSON reports whether the request declares a JSON body.
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// bodyError maps intake failures to a status and front-end message.
func bodyError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge
	case errors.Is(err, intake.ErrEmptyBody):
		return http.StatusBadRequest, msgNoData
	case errors.Is(err, intake.ErrMalformed):
		return http.StatusBadRequest, msgMustBeJSON
	default:
		return http.StatusBadRequest, err.Error()
	}
}
