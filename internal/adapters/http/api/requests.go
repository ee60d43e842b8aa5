package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/commskill/internal/domain/scoring"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

type processRequest struct {
	VideoURL string `json:"videoUrl" validate:"required,url"`
}

type saveRequest struct {
	VideoURL string         `json:"videoUrl" validate:"required"`
	Results  scoring.Scores `json:"results" validate:"required,min=1"`
}

type chatMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Message        string `json:"message" validate:"required,max=4000"`
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type scoreResponse struct {
	Results        scoring.Scores      `json:"results"`
	Fallbacks      []scoring.Dimension `json:"fallbacks"`
	WordsPerMinute float64             `json:"wordsPerMinute"`
	WordCount      int                 `json:"wordCount"`
}

type historyResponse struct {
	Analyses any `json:"analyses"`
	Count    int `json:"count"`
}

type profileResponse struct {
	UserID string `json:"userId"`
}

// decodeJSON decodes a single JSON object from the body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
