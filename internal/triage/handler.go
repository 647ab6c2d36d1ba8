package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	Reply   ChatMessage `json:"reply"`
	Session SessionView `json:"session"`
}

type FeedbackRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Rating    int    `json:"rating"`
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []fieldIssue `json:"fields,omitempty"`
}

type fieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var form IntakeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	sess, err := h.svc.StartSession(r.Context(), userIDFrom(r), form)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	reply, sess, err := h.svc.SendMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Reply: reply, Session: sess.View()})
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.UserID == "" {
		req.UserID = userIDFrom(r)
	}

	res, err := h.svc.EndSession(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze is the stateless analysis endpoint: intake in, assessment out.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var form IntakeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	result, err := h.svc.AnalyzeIntake(r.Context(), form)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Durations serves the intake form's duration picklist.
func (h *Handler) Durations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DurationOptions)
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.svc.Report(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	location, err := h.svc.ShareReport(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"location": location})
}

func (h *Handler) SaveFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.UserID == "" {
		req.UserID = userIDFrom(r)
	}
	if err := h.svc.SaveFeedback(r.Context(), req.UserID, req.SessionID, req.Rating); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Feedback saved successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Error: "Invalid intake"}
		for _, f := range verr.Fields {
			resp.Fields = append(resp.Fields, fieldIssue{Field: f.Field, Message: f.Err.Error()})
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, ErrBlankTurn), errors.Is(err, ErrInvalidRating), errors.Is(err, ErrUserRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrTurnInFlight), errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrReportsUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// userIDFrom reads the caller identity set by the authenticating proxy.
func userIDFrom(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/triage", func(r chi.Router) {
		r.Post("/sessions", h.StartSession)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Post("/sessions/{sessionID}/messages", h.SendMessage)
		r.Post("/sessions/{sessionID}/end", h.EndSession)
		r.Post("/analyze", h.Analyze)
		r.Get("/durations", h.Durations)
		r.Get("/history/{userID}", h.ListHistory)
		r.Delete("/history/{userID}", h.ClearHistory)
		r.Get("/history/{userID}/{recordID}/report", h.DownloadReport)
		r.Post("/history/{userID}/{recordID}/report/share", h.ShareReport)
	})
	r.Post("/feedback", h.SaveFeedback)
}
