package api

import (
	"net/http"
	"unicode/utf8"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/validation"
)

var rephraseSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"},
		"language": {"type": "string", "enum": ["en", "ar"]}
	}
}`)

var translateSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["text", "direction"],
	"properties": {
		"text": {"type": "string"},
		"direction": {"type": "string", "enum": ["toArabic", "toEnglish"]}
	}
}`)

var aiFieldCodes = fieldCodes{
	"text":      stderrors.ErrCodeTextRequired,
	"language":  stderrors.ErrCodeInvalidLanguage,
	"direction": stderrors.ErrCodeInvalidDirection,
}

type rephraseRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type rephraseResponse struct {
	Rephrased       string `json:"rephrased"`
	OriginalLength  int    `json:"originalLength"`
	RephrasedLength int    `json:"rephrasedLength"`
}

type translateRequest struct {
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

type translateResponse struct {
	Translated string `json:"translated"`
	Original   string `json:"original"`
	Direction  string `json:"direction"`
}

type aiHealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	OpenAIConfigured bool   `json:"openaiConfigured"`
}

func (s *Server) handleRephrase(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req rephraseRequest
	if err := decode(body, rephraseSchema, aiFieldCodes, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}
	if req.Language == "" {
		req.Language = s.cfg.DefaultLanguage
	}

	out, err := s.ai.Rephrase(r.Context(), req.Text, req.Language)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, rephraseResponse{
		Rephrased:       out,
		OriginalLength:  utf8.RuneCountInString(req.Text),
		RephrasedLength: utf8.RuneCountInString(out),
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req translateRequest
	if err := decode(body, translateSchema, aiFieldCodes, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}

	out, err := s.ai.Translate(r.Context(), req.Text, req.Direction)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, translateResponse{
		Translated: out,
		Original:   req.Text,
		Direction:  req.Direction,
	})
}

func (s *Server) handleAIHealth(w http.ResponseWriter, r *http.Request) {
	stderrors.WriteJSON(w, http.StatusOK, aiHealthResponse{
		Status:           "ok",
		Service:          "ai-assistance",
		OpenAIConfigured: s.ai.Configured(),
	})
}
