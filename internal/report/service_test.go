package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var candidateFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

func fontOrSkip(t *testing.T) []string {
	t.Helper()
	for _, p := range candidateFonts {
		if _, err := os.Stat(p); err == nil {
			return []string{p}
		}
	}
	t.Skip("no DejaVu font installed")
	return nil
}

func TestRenderSinglePage(t *testing.T) {
	fonts := fontOrSkip(t)
	rec := record()
	rec.Result.Explanation = strings.Repeat("Symptoms have persisted and intensified through the week. ", 50)

	svc := NewService(NewRenderer(fonts), nil, nil)
	data, name, err := svc.Render(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "MedTriage_Report_Asha_Rao_2025-03-01.pdf", name)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumPage())
}

func TestLayoutFitsDrawnWidth(t *testing.T) {
	fonts := fontOrSkip(t)
	d, err := NewRenderer(fonts).newPage()
	require.NoError(t, err)

	rec := record()
	rec.Result.Explanation = strings.Repeat("MMMM WWWW ", 30) +
		strings.Repeat("Symptoms have persisted and intensified through the week, with fever spiking at night. ", 6)
	rec.Symptoms = []string{"Headache", "Fever", "Shortness of breath", "Muscle aches", "Persistent dry cough"}
	rec.Result.Recommendation.Reason = strings.Repeat("WWWW MMMM ", 20)

	doc := Layout(rec, d.measure)
	require.NoError(t, d.err)

	check := func(lines []string, size int, width float64) {
		t.Helper()
		for _, l := range lines {
			require.NoError(t, d.pdf.SetFont(fontFamily, "", size))
			w, err := d.pdf.MeasureTextWidth(l)
			require.NoError(t, err)
			assert.LessOrEqual(t, w, width, l)
		}
	}
	check(doc.ExplanationLines, bodySize, contentW)
	check(doc.SymptomLines, bodySize, contentW)
	check(doc.Specialist.ReasonLines, bodySize, boxTextW)
	check(doc.DisclaimerLines, disclaimerSize, contentW)
	check([]string{doc.Specialist.Specialization}, specialistSize, boxTextW)
}

func TestRenderWithoutFont(t *testing.T) {
	svc := NewService(NewRenderer([]string{filepath.Join(t.TempDir(), "missing.ttf")}), nil, nil)
	_, _, err := svc.Render(context.Background(), record())
	assert.ErrorIs(t, err, ErrFontNotFound)
}

func TestExportNeedsSink(t *testing.T) {
	svc := NewService(NewRenderer(nil), nil, nil)
	_, err := svc.Export(context.Background(), record())
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestFileSinkExport(t *testing.T) {
	fonts := fontOrSkip(t)
	dir := filepath.Join(t.TempDir(), "reports")

	svc := NewService(NewRenderer(fonts), FileSink{Dir: dir}, nil)
	loc, err := svc.Export(context.Background(), record())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MedTriage_Report_Asha_Rao_2025-03-01.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

type fakeSender struct {
	chatID int64
	name   string
	err    error
}

func (f *fakeSender) SendDocument(ctx context.Context, chatID int64, data []byte, fileName, caption string) error {
	f.chatID = chatID
	f.name = fileName
	return f.err
}

func TestTelegramSink(t *testing.T) {
	sender := &fakeSender{}
	sink := TelegramSink{Client: sender, ChatID: 99}

	loc, err := sink.Export(context.Background(), "r.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "telegram:99/r.pdf", loc)
	assert.Equal(t, int64(99), sender.chatID)

	sender.err = errors.New("boom")
	_, err = sink.Export(context.Background(), "r.pdf", nil)
	assert.Error(t, err)

	_, err = TelegramSink{Client: sender}.Export(context.Background(), "r.pdf", nil)
	assert.Error(t, err)
}
