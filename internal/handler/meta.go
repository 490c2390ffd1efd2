package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/speechrelay/api/internal/speech"
)

type MetaHandler struct {
	speech *speech.Services
}

func NewMetaHandler(svc *speech.Services) *MetaHandler {
	return &MetaHandler{speech: svc}
}

// Languages lists the supported languages and translation pairs.
func (h *MetaHandler) Languages(c *gin.Context) {
	respond(c, gin.H{
		"supported_languages": speech.SupportedLanguages,
		"language_pairs":      h.speech.GetLanguagePairs(),
	})
}

// Voices lists the synthesis voice catalog.
func (h *MetaHandler) Voices(c *gin.Context) {
	respond(c, gin.H{"voices": h.speech.GetAvailableVoices()})
}
