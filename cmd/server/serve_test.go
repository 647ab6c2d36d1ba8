package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtriage/internal/config"
	"medtriage/internal/pharmacy"
	"medtriage/internal/report"
	"medtriage/internal/triage"
)

type stubReasoner struct{}

func (stubReasoner) Chat(ctx context.Context, system string, prior []triage.ChatMessage, text string) (string, error) {
	return "How long have you had the fever?", nil
}

func (stubReasoner) Analyze(ctx context.Context, p triage.PatientContext) (string, error) {
	return `{"riskLevel":"Low","explanation":"Mild.","recommendation":{"specialization":"General Physician","reason":"Routine"},"consultationSummary":"ok"}`, nil
}

func TestRouterWiring(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Report.ExportDir = ""

	st, err := openStores(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	svc := triage.NewService(triage.Deps{
		Reasoner: stubReasoner{},
		History:  st.history,
		Feedback: st.feedback,
		Reporter: newReportService(cfg, zap.NewNop()),
	})
	r := newRouter(zap.NewNop(), triage.NewHandler(svc, nil), pharmacy.NewHandler(pharmacy.NewService(st.orders, nil), nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Asha","age":"34","gender":"female","symptoms":["Fever"],"duration":"1-3 days"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/triage/sessions", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart/u1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/triage/durations", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/triage/sessions", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewNotifier(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Nil(t, newNotifier(cfg, zap.NewNop()))

	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.DoctorChatID = 77
	n := newNotifier(cfg, zap.NewNop())
	alert, ok := n.(report.TelegramAlert)
	require.True(t, ok)
	assert.Equal(t, int64(77), alert.ChatID)
}
