package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/ports"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

type Server struct {
	svc ports.ProfileService
	cop ports.COPService
	srv *http.Server
	log *slog.Logger
}

// New returns a runnable server.
func New(svc ports.ProfileService, cop ports.COPService, addr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{svc: svc, cop: cop, log: log}

	mux.HandleFunc("GET /v1/models", s.handleGetModels)
	mux.HandleFunc("GET /v1/cop", s.handleGetPoint)
	mux.HandleFunc("POST /v1/cop", s.handlePostCOP)
	mux.HandleFunc("POST /v1/profiles", s.handlePostProfiles)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type modelDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type copRequestDTO struct {
	Model        string    `json:"model"`
	Temperatures []float64 `json:"temperatures"`
}

type copResponseDTO struct {
	Model string    `json:"model"`
	COP   []float64 `json:"cop"`
}

type pointDTO struct {
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	COP           float64 `json:"cop"`
	CapacityRatio float64 `json:"capacity_ratio"`
	AuxFraction   float64 `json:"aux_fraction"`
}

// Omitted fields fall back to the service's default request.
type profileRequestDTO struct {
	Year          *int     `json:"year"`
	States        []string `json:"states"`
	BuildingClass *string  `json:"building_class"`
	HPModel       *string  `json:"hp_model"`
}

type stateDTO struct {
	State      string  `json:"state"`
	Path       string  `json:"path,omitempty"`
	Pumas      int     `json:"pumas"`
	Steps      int     `json:"steps"`
	DurationMS float64 `json:"duration_ms"`
	Skipped    bool    `json:"skipped,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type reportDTO struct {
	RunID         string     `json:"run_id"`
	Year          int        `json:"year"`
	BuildingClass string     `json:"building_class"`
	HPModel       string     `json:"hp_model"`
	States        []stateDTO `json:"states"`
	Error         string     `json:"error,omitempty"`
}

func (d profileRequestDTO) apply(req profile.Request) profile.Request {
	if d.Year != nil {
		req.Year = *d.Year
	}
	if len(d.States) > 0 {
		req.States = d.States
	}
	if d.BuildingClass != nil {
		req.Class = *d.BuildingClass
	}
	if d.HPModel != nil {
		req.Model = *d.HPModel
	}
	return req
}

func toReportDTO(r profile.Report) reportDTO {
	dto := reportDTO{
		RunID:         r.RunID,
		Year:          r.Year,
		BuildingClass: r.Class.String(),
		HPModel:       r.Model.String(),
		States:        make([]stateDTO, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		sd := stateDTO{
			State:      res.State,
			Path:       res.Path,
			Pumas:      res.Pumas,
			Steps:      res.Steps,
			DurationMS: float64(res.Duration) / float64(time.Millisecond),
			Skipped:    res.Skipped,
		}
		if res.Err != nil {
			sd.Error = res.Err.Error()
		}
		dto.States = append(dto.States, sd)
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGetModels(w http.ResponseWriter, _ *http.Request) {
	out := make([]modelDTO, 0, len(heatpump.Models))
	for _, m := range heatpump.Models {
		out = append(out, modelDTO{Name: m.String(), Description: m.Description()})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /v1/cop?model=advperfhp&temperature=-5
func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := heatpump.ParseModel(q.Get("model"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	temp, err := strconv.ParseFloat(q.Get("temperature"), 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or missing 'temperature'")
		return
	}
	pt, err := s.cop.Evaluate(temp, m)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pointDTO{
		Model:         m.String(),
		Temperature:   temp,
		COP:           pt.COP,
		CapacityRatio: pt.CapacityRatio,
		AuxFraction:   pt.AuxFraction,
	})
}

func (s *Server) handlePostCOP(w http.ResponseWriter, r *http.Request) {
	var req copRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := heatpump.ParseModel(req.Model)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	cop, err := s.cop.COP(req.Temperatures, m)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, copResponseDTO{Model: m.String(), COP: cop})
}

func (s *Server) handlePostProfiles(w http.ResponseWriter, r *http.Request) {
	var body profileRequestDTO
	if !decodeBody(w, r, &body) {
		return
	}

	rep, err := s.svc.Generate(r.Context(), body.apply(s.svc.DefaultRequest()))
	switch {
	case errors.Is(err, profile.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.log.ErrorContext(r.Context(), "profile generation failed", slog.Any("error", err))
		dto := toReportDTO(rep)
		dto.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, dto)
	default:
		writeJSON(w, http.StatusOK, toReportDTO(rep))
	}
}

// ---- generic helpers ----

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
