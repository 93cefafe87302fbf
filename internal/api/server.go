// Package api exposes the assessment and supplier services over HTTP.
// Authentication is handled upstream; the caller's identity arrives in the
// X-User-ID and X-Company-ID headers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/assessment"
	"github.com/sells-group/esg-cli/internal/export"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/internal/scoring"
	"github.com/sells-group/esg-cli/internal/store"
	"github.com/sells-group/esg-cli/internal/supplier"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID    = "X-User-ID"
	HeaderCompanyID = "X-Company-ID"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64
	RateBurst int
}

// Server serves the REST API.
type Server struct {
	assessments *assessment.Service
	suppliers   *supplier.Service
	health      Pinger
	opts        Options
}

// New creates a Server.
func New(assessments *assessment.Service, suppliers *supplier.Service, health Pinger, opts Options) *Server {
	return &Server{assessments: assessments, suppliers: suppliers, health: health, opts: opts}
}

// Routes returns the router with middleware and every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderUserID, HeaderCompanyID},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.opts.RateLimit > 0 {
		r.Use(newIPLimiter(s.opts.RateLimit, s.opts.RateBurst).middleware)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/esg", func(r chi.Router) {
		r.Post("/update", s.handlePatch)
		r.Get("/data", s.handleGetRecord)
		r.Post("/submit", s.handleSubmit)
		r.Post("/review/{recordID}", s.handleReview)
		r.Post("/update-points", s.handleOverride)
		r.Get("/all", s.handleListRecords)
		r.Delete("/{recordID}", s.handleDeleteRecord)
	})
	r.Get("/company-info", s.handleGetCompanyInfo)
	r.Post("/company-info", s.handlePatchCompanyInfo)
	r.Get("/dashboard", s.handleDashboard)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", s.handleAdminSummary)
		r.Get("/esg-submissions", s.handleSubmissions)
		r.Get("/export", s.handleExport)
	})

	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", s.handleListSuppliers)
		r.Get("/{userID}", s.handleGetSupplier)
		r.Patch("/{userID}", s.handleUpdateSupplier)
		r.Patch("/{userID}/esg-scores", s.handleUpdateScores)
		r.Patch("/{userID}/form-submission", s.handleFormSubmission)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.health.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "timestamp": time.Now().UTC()})
}

type patchRequest struct {
	Category   model.Category `json:"category"`
	Subsection string         `json:"subsection"`
	Data       map[string]any `json:"data"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req patchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.assessments.Patch(r.Context(), scoring.Patch{
		Owner: owner, Category: req.Category, Subsection: req.Subsection, Data: req.Data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePatchCompanyInfo(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var data map[string]any
	if !decodeBody(w, r, &data) {
		return
	}
	rec, err := s.assessments.Patch(r.Context(), scoring.Patch{
		Owner: owner, Category: model.CategoryCompanyInfo, Data: data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.CompanyInfo)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	rec, err := s.assessments.Get(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetCompanyInfo(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	info, err := s.assessments.GetCompanyInfo(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companyInfo": info,
		"completion":  scoring.CompanyInfoCompletion(info),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	rec, err := s.assessments.Submit(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type reviewRequest struct {
	Status   model.Status `json:"status"`
	Comments string       `json:"comments"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.assessments.Review(r.Context(), chi.URLParam(r, "recordID"), req.Status, req.Comments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req assessment.OverrideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.assessments.Override(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter, ok := recordFilter(w, r)
	if !ok {
		return
	}
	s.listRecords(w, r, filter)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	filter, ok := recordFilter(w, r)
	if !ok {
		return
	}
	filter.Status = model.StatusSubmitted
	s.listRecords(w, r, filter)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, filter store.RecordFilter) {
	recs, err := s.assessments.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []*model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.assessments.Delete(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	sum, err := s.assessments.Dashboard(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.assessments.AdminSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatXLSX
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			writeError(w, err)
			return
		}
		format = f
	}
	filter, ok := recordFilter(w, r)
	if !ok {
		return
	}
	recs, err := s.assessments.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := map[export.Format]string{
		export.FormatJSON: "application/json",
		export.FormatYAML: "application/yaml",
		export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}[format]
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="esg-records.%s"`, format))
	if err := export.Write(w, format, recs); err != nil {
		zap.L().Error("api: export failed", zap.Error(err))
	}
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := paging(w, r)
	if !ok {
		return
	}
	profiles, err := s.suppliers.List(r.Context(), store.ProfileFilter{
		Industry: r.URL.Query().Get("industry"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*model.SupplierProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	p, err := s.suppliers.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var d model.ProfileDetails
	if !decodeBody(w, r, &d) {
		return
	}
	p, err := s.suppliers.UpdateDetails(r.Context(), chi.URLParam(r, "userID"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateScores(w http.ResponseWriter, r *http.Request) {
	var patch model.ESGScoresPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	scores, err := s.suppliers.UpdateScores(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

type formSubmissionRequest struct {
	FormType  model.Category `json:"formType"`
	Submitted bool           `json:"submitted"`
}

func (s *Server) handleFormSubmission(w http.ResponseWriter, r *http.Request) {
	var req formSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	forms, err := s.suppliers.UpdateFormSubmission(r.Context(), chi.URLParam(r, "userID"), req.FormType, req.Submitted)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (model.Owner, bool) {
	owner := model.Owner{UserID: r.Header.Get(HeaderUserID), CompanyID: r.Header.Get(HeaderCompanyID)}
	if err := owner.Validate(); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUserID + " or " + HeaderCompanyID})
		return owner, false
	}
	return owner, true
}

func recordFilter(w http.ResponseWriter, r *http.Request) (store.RecordFilter, bool) {
	limit, offset, ok := paging(w, r)
	if !ok {
		return store.RecordFilter{}, false
	}
	q := r.URL.Query()
	return store.RecordFilter{
		Status:    model.Status(q.Get("status")),
		UserID:    q.Get("userId"),
		CompanyID: q.Get("companyId"),
		Limit:     limit,
		Offset:    offset,
	}, true
}

func paging(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	parse := func(key string) (int, bool) {
		v := r.URL.Query().Get(key)
		if v == "" {
			return 0, true
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: key + " must be a non-negative integer"})
			return 0, false
		}
		return n, true
	}
	if limit, ok = parse("limit"); !ok {
		return 0, 0, false
	}
	if offset, ok = parse("offset"); !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

type errorBody struct {
	Error string `json:"error"`
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case eris.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case eris.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, model.ErrInvalidState), resilience.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
