package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/speechrelay/api/internal/audio"
	"github.com/speechrelay/api/internal/model"
	"github.com/speechrelay/api/internal/pipeline"
	"github.com/speechrelay/api/internal/session"
	"github.com/speechrelay/api/internal/speech"
	"github.com/speechrelay/api/internal/store"
)

type echoTranscriber struct{ text string }

func (e *echoTranscriber) Transcribe(_ context.Context, _ []float32, _ string) (string, error) {
	return e.text, nil
}

type echoTranslator struct{ text string }

func (e *echoTranslator) Translate(_ context.Context, _, _, _ string) (string, error) {
	return e.text, nil
}

type echoSynthesizer struct{}

func (e *echoSynthesizer) Synthesize(_ context.Context, _ string, _ float64) (speech.SegmentSynthesis, error) {
	phones := []string{"bonjour", "|", "monde"}
	alignment := make([][]float64, 10)
	for i := range alignment {
		alignment[i] = make([]float64, len(phones))
		if i < 5 {
			alignment[i][0] = 1.0
		} else {
			alignment[i][2] = 1.0
		}
	}
	return speech.SegmentSynthesis{
		Samples:    make([]float32, 16000),
		SampleRate: 16000,
		Alignment:  alignment,
		Phones:     phones,
	}, nil
}

type testServer struct {
	router *gin.Engine
	store  *store.SessionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.TeacherSession{}, &model.StudentSession{}, &model.TranscriptEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	log := zap.NewNop()
	st := store.New(db, log)
	manager := session.NewManager(st, 2*time.Hour, log)

	synths := make(map[string]speech.Synthesizer)
	for lang := range speech.SupportedLanguages {
		synths[lang] = &echoSynthesizer{}
	}
	svc, err := speech.NewServices(&echoTranscriber{text: "hello world"}, &echoTranslator{text: "bonjour monde"}, synths, log)
	if err != nil {
		t.Fatalf("failed to build speech services: %v", err)
	}
	orch := pipeline.NewOrchestrator(svc, st, nil, log)

	sessionHandler := NewSessionHandler(manager, st, log)
	audioHandler := NewAudioHandler(orch, manager, log)
	metaHandler := NewMetaHandler(svc)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/sessions/teacher", sessionHandler.Create)
	api.POST("/sessions/teacher/validate", sessionHandler.ValidateTeacher)
	api.POST("/sessions/student/validate", sessionHandler.ValidateStudent)
	api.POST("/sessions/clear", sessionHandler.Clear)
	api.POST("/process_audio", audioHandler.ProcessAudio)
	api.POST("/synthesize", audioHandler.Synthesize)
	api.GET("/languages", metaHandler.Languages)
	api.GET("/voices", metaHandler.Voices)

	return &testServer{router: router, store: st}
}

func (ts *testServer) post(t *testing.T, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w, decodeData(t, w)
}

func (ts *testServer) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w, decodeData(t, w)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return envelope.Data
}

func (ts *testServer) createSession(t *testing.T) (teacherCode, studentCode string) {
	t.Helper()
	w, data := ts.post(t, "/api/v1/sessions/teacher", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("session create returned %d: %s", w.Code, w.Body.String())
	}
	teacherCode, _ = data["teacher_code"].(string)
	studentCode, _ = data["student_code"].(string)
	if len(teacherCode) != session.CodeLength || len(studentCode) != session.CodeLength {
		t.Fatalf("unexpected codes: %q / %q", teacherCode, studentCode)
	}
	return teacherCode, studentCode
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	teacherCode, studentCode := ts.createSession(t)

	if _, err := ts.store.StoreTranscriptEntry(ctx, teacherCode, "hello", "bonjour"); err != nil {
		t.Fatalf("failed to seed transcript: %v", err)
	}
	if _, err := ts.store.StoreTranscriptEntry(ctx, teacherCode, "world", "monde"); err != nil {
		t.Fatalf("failed to seed transcript: %v", err)
	}

	w, data := ts.post(t, "/api/v1/sessions/teacher/validate", gin.H{"teacher_code": teacherCode})
	if w.Code != http.StatusOK {
		t.Fatalf("teacher validate returned %d", w.Code)
	}
	if data["valid"] != true {
		t.Fatalf("expected valid session, got %v", data)
	}
	if data["student_code"] != studentCode {
		t.Fatalf("expected student code %q, got %v", studentCode, data["student_code"])
	}
	if data["transcription"] != "hello world" || data["translation"] != "bonjour monde" {
		t.Fatalf("unexpected joined transcript: %v", data)
	}

	w, data = ts.post(t, "/api/v1/sessions/student/validate", gin.H{"student_code": studentCode})
	if w.Code != http.StatusOK {
		t.Fatalf("student validate returned %d", w.Code)
	}
	if data["valid"] != true || data["teacher_code"] != teacherCode {
		t.Fatalf("unexpected student validation: %v", data)
	}
	if data["translation"] != "bonjour monde" {
		t.Fatalf("expected transcript for joining student, got %v", data)
	}

	w, _ = ts.post(t, "/api/v1/sessions/clear", gin.H{"teacher_code": teacherCode})
	if w.Code != http.StatusOK {
		t.Fatalf("clear returned %d", w.Code)
	}
	_, data = ts.post(t, "/api/v1/sessions/teacher/validate", gin.H{"teacher_code": teacherCode})
	if data["transcription"] != "" || data["translation"] != "" {
		t.Fatalf("expected empty transcript after clear, got %v", data)
	}
}

func TestValidateTeacher_UnknownCode(t *testing.T) {
	ts := newTestServer(t)

	w, data := ts.post(t, "/api/v1/sessions/teacher/validate", gin.H{"teacher_code": "ZZZZZZ"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 envelope for unknown code, got %d", w.Code)
	}
	if data["valid"] != false {
		t.Fatalf("expected valid:false, got %v", data)
	}
}

func TestValidateTeacher_MissingBody(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.post(t, "/api/v1/sessions/teacher/validate", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing teacher_code, got %d", w.Code)
	}
}

func TestProcessAudio(t *testing.T) {
	ts := newTestServer(t)
	teacherCode, _ := ts.createSession(t)

	rawAudio := audio.EncodePCM16(make([]float32, 1600))
	w, data := ts.post(t, "/api/v1/process_audio", gin.H{
		"audio":        base64.StdEncoding.EncodeToString(rawAudio),
		"from_code":    "en",
		"to_code":      "fr",
		"voice":        "FR",
		"speed":        1.0,
		"teacher_code": teacherCode,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("process_audio returned %d: %s", w.Code, w.Body.String())
	}
	if data["transcription"] != "hello world" || data["translation"] != "bonjour monde" {
		t.Fatalf("unexpected pipeline output: %v", data)
	}
	audioB64, _ := data["audio"].(string)
	if audioB64 == "" {
		t.Fatal("expected base64 audio in response")
	}
	if _, err := base64.StdEncoding.DecodeString(audioB64); err != nil {
		t.Fatalf("response audio is not valid base64: %v", err)
	}
	timings, _ := data["word_timings"].([]any)
	if len(timings) != 2 {
		t.Fatalf("expected 2 word timings, got %v", data["word_timings"])
	}
}

func TestProcessAudio_DataURIPrefix(t *testing.T) {
	ts := newTestServer(t)
	teacherCode, _ := ts.createSession(t)

	rawAudio := audio.EncodePCM16(make([]float32, 1600))
	w, _ := ts.post(t, "/api/v1/process_audio", gin.H{
		"audio":        "data:audio/pcm;base64," + base64.StdEncoding.EncodeToString(rawAudio),
		"teacher_code": teacherCode,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected data-URI payload to be accepted, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProcessAudio_UnknownSession(t *testing.T) {
	ts := newTestServer(t)

	rawAudio := audio.EncodePCM16(make([]float32, 1600))
	w, _ := ts.post(t, "/api/v1/process_audio", gin.H{
		"audio":        base64.StdEncoding.EncodeToString(rawAudio),
		"teacher_code": "ZZZZZZ",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestProcessAudio_BadBase64(t *testing.T) {
	ts := newTestServer(t)
	teacherCode, _ := ts.createSession(t)

	w, _ := ts.post(t, "/api/v1/process_audio", gin.H{
		"audio":        "not base64!!!",
		"teacher_code": teacherCode,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid base64, got %d", w.Code)
	}
}

func TestSynthesizeText(t *testing.T) {
	ts := newTestServer(t)

	w, data := ts.post(t, "/api/v1/synthesize", gin.H{"text": "Bonjour monde", "voice": "FR"})
	if w.Code != http.StatusOK {
		t.Fatalf("synthesize returned %d: %s", w.Code, w.Body.String())
	}
	audioB64, _ := data["audio"].(string)
	if audioB64 == "" {
		t.Fatal("expected base64 audio in response")
	}
}

func TestLanguagesAndVoices(t *testing.T) {
	ts := newTestServer(t)

	w, data := ts.get(t, "/api/v1/languages")
	if w.Code != http.StatusOK {
		t.Fatalf("languages returned %d", w.Code)
	}
	langs, _ := data["supported_languages"].(map[string]any)
	if len(langs) != 5 {
		t.Fatalf("expected 5 supported languages, got %v", data["supported_languages"])
	}
	pairs, _ := data["language_pairs"].(map[string]any)
	if len(pairs) == 0 {
		t.Fatal("expected language pairs in response")
	}

	w, data = ts.get(t, "/api/v1/voices")
	if w.Code != http.StatusOK {
		t.Fatalf("voices returned %d", w.Code)
	}
	voices, _ := data["voices"].([]any)
	if len(voices) != 6 {
		t.Fatalf("expected 6 voices, got %v", data["voices"])
	}
}

func TestJoinTranscript(t *testing.T) {
	entries := []model.TranscriptEntry{
		{Transcription: "hello", Translation: "bonjour"},
		{Transcription: "world", Translation: "monde"},
	}
	transcription, translation := joinTranscript(entries)
	if transcription != "hello world" {
		t.Fatalf("unexpected transcription: %q", transcription)
	}
	if translation != "bonjour monde" {
		t.Fatalf("unexpected translation: %q", translation)
	}

	transcription, translation = joinTranscript(nil)
	if transcription != "" || translation != "" {
		t.Fatal("expected empty strings for empty transcript")
	}
}

func TestStripDataURI(t *testing.T) {
	if got := stripDataURI("data:audio/wav;base64,QUJD"); got != "QUJD" {
		t.Fatalf("expected prefix stripped, got %q", got)
	}
	if got := stripDataURI("QUJD"); got != "QUJD" {
		t.Fatalf("expected bare payload untouched, got %q", got)
	}
}
