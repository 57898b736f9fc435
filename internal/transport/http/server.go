package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"apptbook/internal/domain"
	"apptbook/internal/service/booking"
)

type appointmentService interface {
	Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in booking.UpdateInput) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type participantService interface {
	Create(ctx context.Context, name, email string) (domain.Participant, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Server struct {
	router         *mux.Router
	appointments   appointmentService
	participants   participantService
	log            *slog.Logger
	requestTimeout time.Duration
	accessLog      io.Writer
}

func NewServer(appointments appointmentService, participants participantService, log *slog.Logger, requestTimeout time.Duration, accessLog io.Writer) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		router:         mux.NewRouter(),
		appointments:   appointments,
		participants:   participants,
		log:            log.With(slog.String("component", "http")),
		requestTimeout: requestTimeout,
		accessLog:      accessLog,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	s.router.HandleFunc("/appointments", s.listAppointments).Methods(http.MethodGet)
	s.router.HandleFunc("/appointments", s.createAppointment).Methods(http.MethodPost)
	s.router.HandleFunc("/appointments.ics", s.appointmentsFeed).Methods(http.MethodGet)
	s.router.HandleFunc("/appointments/{id}", s.getAppointment).Methods(http.MethodGet)
	s.router.HandleFunc("/appointments/{id}", s.updateAppointment).Methods(http.MethodPatch, http.MethodPut)
	s.router.HandleFunc("/appointments/{id}", s.deleteAppointment).Methods(http.MethodDelete)

	s.router.HandleFunc("/participants", s.listParticipants).Methods(http.MethodGet)
	s.router.HandleFunc("/participants", s.createParticipant).Methods(http.MethodPost)
	s.router.HandleFunc("/participants/{id}", s.getParticipant).Methods(http.MethodGet)
	s.router.HandleFunc("/participants/{id}", s.deleteParticipant).Methods(http.MethodDelete)
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = requestTimeout(s.requestTimeout)(h)
	h = handlers.RecoveryHandler()(h)
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return h
}

func requestTimeout(timeout time.Duration) mux.MiddlewareFunc {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("response encode failed", slog.Any("err", err))
	}
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps service error kinds to response statuses. Internal
// failures are logged with their full detail and reported generically.
func (s *Server) writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *booking.ValidationError
	var nfErr *booking.NotFoundError
	var cErr *booking.ConflictError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		s.writeMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &nfErr):
		log.Info("resource not found", slog.Any("err", err))
		s.writeMessage(w, http.StatusNotFound, nfErr.Error())
	case errors.As(err, &cErr):
		log.Info("request conflict", slog.Any("err", err))
		s.writeMessage(w, http.StatusConflict, cErr.Error())
	default:
		log.Error("request failed", slog.Any("err", err))
		s.writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}
