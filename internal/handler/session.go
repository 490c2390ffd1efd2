package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/model"
	"github.com/speechrelay/api/internal/session"
	"github.com/speechrelay/api/internal/store"
)

type SessionHandler struct {
	manager *session.Manager
	store   *store.SessionStore
	log     *zap.Logger
}

func NewSessionHandler(manager *session.Manager, st *store.SessionStore, log *zap.Logger) *SessionHandler {
	return &SessionHandler{manager: manager, store: st, log: log}
}

type teacherCodeRequest struct {
	TeacherCode string `json:"teacher_code" binding:"required"`
}

type studentCodeRequest struct {
	StudentCode string `json:"student_code" binding:"required"`
}

// Create starts a new paired teacher session.
func (h *SessionHandler) Create(c *gin.Context) {
	teacherCode, studentCode, err := h.manager.CreateTeacherSession(c.Request.Context())
	if err != nil {
		h.log.Error("failed to create teacher session", zap.Error(err))
		fail(c, err)
		return
	}
	respond(c, gin.H{
		"teacher_code": teacherCode,
		"student_code": studentCode,
	})
}

// ValidateTeacher refreshes the session and returns its student code plus
// the accumulated transcript.
func (h *SessionHandler) ValidateTeacher(c *gin.Context) {
	var req teacherCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, "teacher_code is required")
		return
	}

	ctx := c.Request.Context()
	valid, err := h.manager.ValidateTeacherSession(ctx, req.TeacherCode)
	if err != nil {
		fail(c, err)
		return
	}
	if !valid {
		respond(c, gin.H{"valid": false})
		return
	}

	codes, err := h.manager.GetSessionCodes(ctx, req.TeacherCode)
	if err != nil {
		fail(c, err)
		return
	}

	transcription, translation := h.joinedTranscript(c, req.TeacherCode)
	data := gin.H{
		"valid":         true,
		"transcription": transcription,
		"translation":   translation,
	}
	if codes != nil {
		data["student_code"] = codes.StudentCode
	}
	respond(c, data)
}

// ValidateStudent joins (or refreshes) a listener against a classroom and
// returns the transcript so far.
func (h *SessionHandler) ValidateStudent(c *gin.Context) {
	var req studentCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, "student_code is required")
		return
	}

	ctx := c.Request.Context()
	valid, err := h.manager.ValidateStudentSession(ctx, req.StudentCode)
	if err != nil {
		fail(c, err)
		return
	}
	if !valid {
		respond(c, gin.H{"valid": false})
		return
	}

	teacherCode, err := h.store.GetTeacherCodeForStudent(ctx, req.StudentCode)
	if err != nil {
		fail(c, err)
		return
	}

	transcription, translation := h.joinedTranscript(c, teacherCode)
	respond(c, gin.H{
		"valid":         true,
		"teacher_code":  teacherCode,
		"transcription": transcription,
		"translation":   translation,
	})
}

// Clear drops the accumulated transcript for a teacher session.
func (h *SessionHandler) Clear(c *gin.Context) {
	var req teacherCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, "teacher_code is required")
		return
	}

	if err := h.store.ClearTranscript(c.Request.Context(), req.TeacherCode); err != nil {
		h.log.Error("failed to clear transcript",
			zap.String("teacher_code", req.TeacherCode), zap.Error(err))
		fail(c, err)
		return
	}
	respond(c, gin.H{})
}

// joinedTranscript concatenates all entries for a session with single
// spaces. A read failure degrades to an empty transcript rather than
// failing the validation.
func (h *SessionHandler) joinedTranscript(c *gin.Context, teacherCode string) (string, string) {
	entries, err := h.store.GetTranscript(c.Request.Context(), teacherCode)
	if err != nil {
		h.log.Warn("failed to load transcript",
			zap.String("teacher_code", teacherCode), zap.Error(err))
		return "", ""
	}
	return joinTranscript(entries)
}

func joinTranscript(entries []model.TranscriptEntry) (string, string) {
	transcriptions := make([]string, 0, len(entries))
	translations := make([]string, 0, len(entries))
	for _, e := range entries {
		transcriptions = append(transcriptions, e.Transcription)
		translations = append(translations, e.Translation)
	}
	return strings.Join(transcriptions, " "), strings.Join(translations, " ")
}
