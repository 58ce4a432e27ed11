package api

import (
	"net/http"

	"github.com/sprite-ai/prgate/internal/engine"
	"github.com/sprite-ai/prgate/internal/logging"
	"github.com/sprite-ai/prgate/internal/model"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Check reviews ---

type checkRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
}

type checkResponse struct {
	State          string   `json:"state"`
	Problems       []string `json:"problems,omitempty"`
	RequestedUsers []string `json:"requested_users,omitempty"`
	RequestedTeams []string `json:"requested_teams,omitempty"`
	MatchedRules   int      `json:"matched_rules"`
	Log            []string `json:"log"`
}

func (req *checkRequest) validate() string {
	if req.Owner == "" {
		return "owner is required"
	}
	if req.Repo == "" {
		return "repo is required"
	}
	if req.PRNumber <= 0 {
		return "pr_number is required"
	}
	return ""
}

func (s *Server) handleCheckReviews(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if s.owner != "" && req.Owner != s.owner {
		writeError(w, http.StatusForbidden, "repository owner is not allowed")
		return
	}

	logger := logging.New(nil)
	resp := s.runCheck(r, &req, logger)
	writeJSON(w, http.StatusOK, resp)
}

// runCheck performs one evaluation run and maps any error to a failure
// verdict: the service fails closed.
func (s *Server) runCheck(r *http.Request, req *checkRequest, logger *logging.Logger) checkResponse {
	ctx := r.Context()
	client := s.clients(req.Owner, req.Repo, req.PRNumber)

	pr, _, err := client.PullRequest(ctx)
	if err != nil {
		logger.Failure("%v", err)
		return checkResponse{State: string(model.StateFailure), Log: logger.Lines()}
	}

	result, err := engine.New(client, logger).Run(ctx, pr)
	if err != nil {
		logger.Failure("%v", err)
		return checkResponse{State: string(model.StateFailure), Log: logger.Lines()}
	}

	return checkResponse{
		State:          string(result.State),
		Problems:       result.Problems,
		RequestedUsers: result.RequestedUsers,
		RequestedTeams: result.RequestedTeams,
		MatchedRules:   result.MatchedRules,
		Log:            logger.Lines(),
	}
}
