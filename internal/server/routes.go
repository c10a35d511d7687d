package server

import "net/http"

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, h apiHandler) {
		mux.Handle(pattern, jsonErrorMiddleware(h))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	handle("POST /api/members", s.handleDeploy)
	handle("GET /api/members", s.handleList)
	handle("GET /api/members/{id}", s.handleStatus)
	handle("GET /api/members/{id}/screen", s.handleScreen)
	handle("POST /api/members/{id}/intervene", s.handleIntervene)
	handle("DELETE /api/members/{id}", s.handleKill)

	handle("POST /api/messages", s.handleSend)
	handle("GET /api/messages", s.handleListen)
	handle("POST /api/broadcasts", s.handleBroadcast)
	handle("POST /api/help", s.handleRequestHelp)
	handle("POST /api/help/{id}/responses", s.handleRespondHelp)

	handle("POST /api/claims", s.handleClaim)
	handle("GET /api/claims", s.handleActiveClaims)
	handle("POST /api/claims/release", s.handleRelease)

	handle("POST /api/heartbeats", s.handleHeartbeat)
	handle("GET /api/team", s.handleTeamStatus)

	mux.HandleFunc("GET /api/events", s.handleEvents)
}
