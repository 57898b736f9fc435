package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func (s *Server) createParticipant(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "createParticipant"))

	var req createParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		s.writeMessage(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		log.Warn("invalid request", slog.Any("errors", errs))
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	p, err := s.participants.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("participant created", slog.String("participant_id", p.ID.String()))
	s.writeJSON(w, http.StatusCreated, map[string]any{"participant": toParticipantResource(p)})
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "getParticipant"))

	id, err := pathID(r)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		s.writeMessage(w, http.StatusBadRequest, "participant id must be a UUID")
		return
	}

	p, err := s.participants.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"participant": toParticipantResource(p)})
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "listParticipants"))

	ps, err := s.participants.List(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	out := make([]participantResource, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipantResource(p))
	}
	log.Debug("participants listed", slog.Int("count", len(out)))
	s.writeJSON(w, http.StatusOK, map[string]any{"participants": out})
}

func (s *Server) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "deleteParticipant"))

	id, err := pathID(r)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		s.writeMessage(w, http.StatusBadRequest, "participant id must be a UUID")
		return
	}

	if err := s.participants.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("participant deleted", slog.String("participant_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
