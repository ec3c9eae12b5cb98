package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/contentstate"
)

// updateContentStateResponse is the reply body: content id to outcome.
type updateContentStateResponse struct {
	Result map[string]contentstate.Outcome `json:"result"`
}

// updateContentState handles POST /v1/content/state. An invalid request is
// rejected whole with 400; otherwise the reply is 200 with per-item outcomes,
// including items that failed.
func (s *Server) updateContentState(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "content state processor unavailable")
		return
	}
	req, err := contentstate.DecodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.requestError(w, r, err)
		return
	}

	res, err := s.processor.Process(r.Context(), req)
	if err != nil {
		s.requestError(w, r, err)
		return
	}
	s.logger.Debug("content state processed",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("learner_id", req.LearnerID),
		zap.Int("items", len(req.Items)),
		zap.Int("merged", len(res.Accepted)),
	)
	writeJSON(w, http.StatusOK, updateContentStateResponse{Result: res.Outcomes})
}

func (s *Server) requestError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, contentstate.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("content state request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
