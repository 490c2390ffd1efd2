package handler

import (
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/errs"
	"github.com/speechrelay/api/internal/pipeline"
	"github.com/speechrelay/api/internal/session"
)

type AudioHandler struct {
	orchestrator *pipeline.Orchestrator
	manager      *session.Manager
	log          *zap.Logger
}

func NewAudioHandler(orch *pipeline.Orchestrator, manager *session.Manager, log *zap.Logger) *AudioHandler {
	return &AudioHandler{orchestrator: orch, manager: manager, log: log}
}

type processAudioRequest struct {
	Audio       string  `json:"audio" binding:"required"`
	FromCode    string  `json:"from_code"`
	ToCode      string  `json:"to_code"`
	Voice       string  `json:"voice"`
	Speed       float64 `json:"speed"`
	TeacherCode string  `json:"teacher_code"`
}

type synthesizeTextRequest struct {
	Text  string  `json:"text" binding:"required"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// ProcessAudio runs one utterance through the full pipeline on behalf of a
// teacher session.
func (h *AudioHandler) ProcessAudio(c *gin.Context) {
	var req processAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, "audio is required")
		return
	}
	if req.TeacherCode == "" {
		failMsg(c, "teacher_code is required")
		return
	}
	applyAudioDefaults(&req)

	ctx := c.Request.Context()
	valid, err := h.manager.ValidateTeacherSession(ctx, req.TeacherCode)
	if err != nil {
		fail(c, err)
		return
	}
	if !valid {
		fail(c, errs.New(errs.KindSessionNotFound,
			"invalid teacher_code: session not found"))
		return
	}

	rawAudio, err := base64.StdEncoding.DecodeString(stripDataURI(req.Audio))
	if err != nil {
		failMsg(c, "invalid base64 audio payload")
		return
	}

	result, err := h.orchestrator.ProcessUtterance(ctx, rawAudio,
		req.FromCode, req.ToCode, req.Voice, req.Speed, req.TeacherCode)
	if err != nil {
		h.log.Warn("utterance pipeline failed",
			zap.String("teacher_code", req.TeacherCode),
			zap.String("from", req.FromCode),
			zap.String("to", req.ToCode),
			zap.Error(err))
		fail(c, err)
		return
	}

	respond(c, gin.H{
		"transcription": result.Transcription,
		"translation":   result.Translation,
		"audio":         base64.StdEncoding.EncodeToString(result.Audio),
		"word_timings":  result.WordTimings,
	})
}

// Synthesize produces speech for raw text, skipping transcription and
// translation.
func (h *AudioHandler) Synthesize(c *gin.Context) {
	var req synthesizeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failMsg(c, "text is required")
		return
	}
	if req.Voice == "" {
		req.Voice = "EN"
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	result, err := h.orchestrator.SynthesizeOnly(c.Request.Context(), req.Text, req.Voice, req.Speed)
	if err != nil {
		h.log.Warn("synthesis failed", zap.String("voice", req.Voice), zap.Error(err))
		fail(c, err)
		return
	}

	respond(c, gin.H{
		"audio":        base64.StdEncoding.EncodeToString(result.Audio),
		"word_timings": result.WordTimings,
	})
}

func applyAudioDefaults(req *processAudioRequest) {
	if req.FromCode == "" {
		req.FromCode = "en"
	}
	if req.ToCode == "" {
		req.ToCode = "en"
	}
	if req.Voice == "" {
		req.Voice = "EN"
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}
}

// stripDataURI drops an optional "data:...;base64," prefix from a payload.
func stripDataURI(payload string) string {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		return payload[i+1:]
	}
	return payload
}
