package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"apptbook/internal/ics"
	"apptbook/internal/service/booking"
)

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "createAppointment"))

	var req createAppointmentRequest
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

	startAt, _ := parseAPITime(req.StartAt)
	endAt, _ := parseAPITime(req.EndAt)

	appt, err := s.appointments.Create(r.Context(), booking.CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		SchedulerName:  req.SchedulerName,
		SchedulerEmail: req.SchedulerEmail,
		StartAt:        startAt,
		EndAt:          endAt,
		ParticipantIDs: parseParticipantIDs(req.Participants),
	})
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_at", appt.StartAt),
		slog.Time("end_at", appt.EndAt),
		slog.Int("participants", len(appt.Participants)),
	)
	s.writeJSON(w, http.StatusCreated, map[string]any{"appointment": toAppointmentResource(appt)})
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "updateAppointment"))

	id, err := pathID(r)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		s.writeMessage(w, http.StatusBadRequest, "appointment id must be a UUID")
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"), slog.String("appointment_id", id.String()))
		s.writeMessage(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		log.Warn("invalid request", slog.Any("errors", errs), slog.String("appointment_id", id.String()))
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	in := booking.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		SchedulerName:  req.SchedulerName,
		SchedulerEmail: req.SchedulerEmail,
	}
	if req.StartAt != nil {
		t, _ := parseAPITime(*req.StartAt)
		in.StartAt = &t
	}
	if req.EndAt != nil {
		t, _ := parseAPITime(*req.EndAt)
		in.EndAt = &t
	}
	if req.Participants != nil {
		ids := parseParticipantIDs(*req.Participants)
		in.ParticipantIDs = &ids
	}

	appt, err := s.appointments.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("appointment updated", slog.String("appointment_id", appt.ID.String()))
	s.writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentResource(appt)})
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "getAppointment"))

	id, err := pathID(r)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		s.writeMessage(w, http.StatusBadRequest, "appointment id must be a UUID")
		return
	}

	appt, err := s.appointments.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentResource(appt)})
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "listAppointments"))

	appts, err := s.appointments.List(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	out := make([]appointmentResource, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResource(a))
	}
	log.Debug("appointments listed", slog.Int("count", len(out)))
	s.writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "deleteAppointment"))

	id, err := pathID(r)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		s.writeMessage(w, http.StatusBadRequest, "appointment id must be a UUID")
		return
	}

	if err := s.appointments.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) appointmentsFeed(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "appointmentsFeed"))

	appts, err := s.appointments.List(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ics.Feed(appts))); err != nil {
		log.Error("feed write failed", slog.Any("err", err))
	}
}
