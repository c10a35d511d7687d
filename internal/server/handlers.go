package server

import (
	"net/http"
	"strings"

	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respond writes result, or the mapped error when err is set.
func respond(w http.ResponseWriter, status int, result any, err error) *apiError {
	if err != nil {
		return fromError(err)
	}
	writeJSON(w, status, result)
	return nil
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.DeployRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Deploy(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) *apiError {
	active, apiErr := queryBool(r, "active")
	if apiErr != nil {
		return apiErr
	}
	if active {
		res, err := s.facade.ActiveMembers(r.Context())
		return respond(w, http.StatusOK, res, err)
	}
	res, err := s.facade.List(r.Context())
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) *apiError {
	res, err := s.facade.Status(r.Context(), orchestrator.MemberRequest{MemberID: r.PathValue("id")})
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) *apiError {
	lines, apiErr := queryInt(r, "lines")
	if apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Screen(r.Context(), orchestrator.ScreenRequest{MemberID: r.PathValue("id"), Lines: lines})
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleIntervene(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.InterveneRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	req.MemberID = r.PathValue("id")
	res, err := s.facade.Intervene(r.Context(), req)
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) *apiError {
	res, err := s.facade.Kill(r.Context(), orchestrator.MemberRequest{MemberID: r.PathValue("id")})
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.SendRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Send(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) *apiError {
	req := orchestrator.ListenRequest{MemberID: r.URL.Query().Get("member")}
	flags := []struct {
		name string
		dst  *bool
	}{
		{"include_expired", &req.IncludeExpired},
		{"include_read", &req.IncludeRead},
		{"by_priority", &req.ByPriority},
		{"peek", &req.Peek},
	}
	for _, f := range flags {
		v, apiErr := queryBool(r, f.name)
		if apiErr != nil {
			return apiErr
		}
		*f.dst = v
	}
	limit, apiErr := queryInt(r, "limit")
	if apiErr != nil {
		return apiErr
	}
	req.Limit = limit
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			req.Types = append(req.Types, mailbox.MessageType(strings.TrimSpace(t)))
		}
	}

	res, err := s.facade.Listen(r.Context(), req)
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.BroadcastRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Broadcast(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleRequestHelp(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.HelpRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.RequestHelp(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleRespondHelp(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.HelpResponse
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	req.RequestID = r.PathValue("id")
	res, err := s.facade.RespondHelp(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.ClaimRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Claim(r.Context(), req)
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.ClaimRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Release(r.Context(), req)
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleActiveClaims(w http.ResponseWriter, r *http.Request) *apiError {
	res, err := s.facade.ActiveClaims(r.Context())
	return respond(w, http.StatusOK, res, err)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) *apiError {
	var req orchestrator.HeartbeatRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		return apiErr
	}
	res, err := s.facade.Heartbeat(r.Context(), req)
	return respond(w, http.StatusCreated, res, err)
}

func (s *Server) handleTeamStatus(w http.ResponseWriter, r *http.Request) *apiError {
	within, apiErr := querySeconds(r, "within")
	if apiErr != nil {
		return apiErr
	}
	res, err := s.facade.TeamStatus(r.Context(), orchestrator.TeamStatusRequest{Within: within})
	return respond(w, http.StatusOK, res, err)
}
