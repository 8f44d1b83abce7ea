// internal/httpserver/routes_public.go
//
// Endpoints that need no player identity:
//   - GET /settings    → grid limits, defaults, and delay choices for the menu
//   - GET /leaderboard → top scores (?n= limits the count)

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/astromatch/internal/deck"
	"github.com/robalobadob/astromatch/internal/scores"
)

// settingsRes describes the choices a client may offer.
type settingsRes struct {
	DefaultGrid         deck.Grid `json:"defaultGrid"`
	MinDim              int       `json:"minDim"`
	MaxDim              int       `json:"maxDim"`
	DelayChoicesSeconds []int     `json:"delayChoicesSeconds"`
	DefaultDelaySeconds int       `json:"defaultDelaySeconds"`
	PeekSeconds         int       `json:"peekSeconds"`
	LeaderboardSize     int       `json:"leaderboardSize"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	gc := s.cfg.Game
	writeJSON(w, http.StatusOK, settingsRes{
		DefaultGrid:         deck.Grid{Rows: gc.DefaultRows, Cols: gc.DefaultCols},
		MinDim:              gc.MinDim,
		MaxDim:              gc.MaxDim,
		DelayChoicesSeconds: gc.DelayChoicesSeconds,
		DefaultDelaySeconds: gc.DefaultDelaySeconds,
		PeekSeconds:         gc.PeekSeconds,
		LeaderboardSize:     s.cfg.Leaderboard.Size,
	})
}

// lbRes is returned by /leaderboard.
type lbRes struct {
	Top []scores.Entry `json:"top"`
}

// handleLeaderboard returns the best recorded rounds.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := 0
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_limit", "n must be a positive integer")
			return
		}
		n = v
	}
	rows, err := s.scores.Top(r.Context(), n)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	if rows == nil {
		rows = []scores.Entry{}
	}
	writeJSON(w, http.StatusOK, lbRes{Top: rows})
}
