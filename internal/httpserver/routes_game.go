// internal/httpserver/routes_game.go
//
// Game endpoints:
//   - POST   /game/new        → fetch images, deal a deck, start the round
//   - GET    /game/{id}       → current state
//   - POST   /game/{id}/flip  → flip one card (ignored flips still return 200)
//   - POST   /game/{id}/ready → end the peek
//   - DELETE /game/{id}      → leave the round (cancels its timers)
//
// Face-down cards are sent without their image, so the grid cannot be read
// from the API.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/astromatch/internal/apod"
	"github.com/robalobadob/astromatch/internal/deck"
	"github.com/robalobadob/astromatch/internal/match"
	"github.com/robalobadob/astromatch/internal/scores"
	"github.com/robalobadob/astromatch/internal/store"
)

const recordTimeout = 5 * time.Second

// newGameReq is the payload for POST /game/new. Zero values select defaults.
type newGameReq struct {
	PlayerName   string `json:"playerName"`
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
	DelaySeconds int    `json:"delaySeconds"`
}

// cardView is one card as a renderer sees it.
type cardView struct {
	Index int             `json:"index"`
	State match.CardState `json:"state"`
	URL   string          `json:"url,omitempty"`
	Title string          `json:"title,omitempty"`
}

// gameView is the JSON shape of a round.
type gameView struct {
	GameID          string     `json:"gameId"`
	Player          string     `json:"player"`
	Grid            deck.Grid  `json:"grid"`
	MismatchDelayMs int64      `json:"mismatchDelayMs"`
	Cards           []cardView `json:"cards"`
	Revealed        []int      `json:"revealed"`
	MatchedPairs    int        `json:"matchedPairs"`
	TotalPairs      int        `json:"totalPairs"`
	Flips           int        `json:"flips"`
	ElapsedSeconds  int        `json:"elapsedSeconds"`
	Resolving       bool       `json:"resolving"`
	Active          bool       `json:"active"`
	Peeking         bool       `json:"peeking"`
	Complete        bool       `json:"complete"`
}

type flipReq struct {
	Index *int `json:"index"`
}

type flipRes struct {
	Accepted bool     `json:"accepted"`
	Game     gameView `json:"game"`
}

// handleNewGame validates settings, fetches images and deals a new round.
// A player's previous round is discarded.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "")
			return
		}
	}

	gc := s.cfg.Game
	grid := deck.Grid{Rows: req.Rows, Cols: req.Cols}
	if grid.Rows == 0 {
		grid.Rows = gc.DefaultRows
	}
	if grid.Cols == 0 {
		grid.Cols = gc.DefaultCols
	}
	if err := grid.Validate(deck.Limits{MinDim: gc.MinDim, MaxDim: gc.MaxDim}); err != nil {
		code := "grid_range"
		if errors.Is(err, deck.ErrOddGrid) {
			code = "odd_grid"
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	delay := req.DelaySeconds
	if delay == 0 {
		delay = gc.DefaultDelaySeconds
	}
	if !slices.Contains(gc.DelayChoicesSeconds, delay) {
		writeError(w, http.StatusBadRequest, "invalid_delay", "delay must be one of the offered choices")
		return
	}

	images, err := s.images.FetchImages(r.Context(), grid.Pairs()+s.cfg.APOD.Overfetch)
	if err != nil {
		kind := apod.Kind(err)
		s.metrics.FetchErrors.WithLabelValues(kind).Inc()
		log.Warn().Err(err).Str("kind", kind).Msg("fetch images")
		writeJSON(w, http.StatusBadGateway, errorRes{Error: kind, Message: apod.UserMessage(kind), Retry: true})
		return
	}
	images = deck.FilterImages(images)
	cards, err := deck.Build(images, grid.Pairs(), nil)
	if err != nil {
		s.metrics.FetchErrors.WithLabelValues("not_enough_images").Inc()
		log.Warn().Err(err).Int("pairs", grid.Pairs()).Msg("build deck")
		writeJSON(w, http.StatusBadGateway, errorRes{Error: "not_enough_images", Message: err.Error(), Retry: true})
		return
	}

	sess := s.newSession(playerID(r), scores.NormalizePlayer(req.PlayerName), grid, images, time.Duration(delay)*time.Second)
	// The round must be live before it is stored: a concurrent Put for the
	// same player then abandons it and cancels its timers.
	sess.Controller.StartRound(cards, grid.Pairs())
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		sess.Controller.Abandon()
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed", "")
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))

	log.Info().
		Str("gameId", sess.ID).
		Str("player", sess.PlayerName).
		Int("rows", grid.Rows).
		Int("cols", grid.Cols).
		Msg("round started")
	writeJSON(w, http.StatusCreated, s.view(sess))
}

// newSession builds a session whose controller reports to the event feed,
// metrics, and the leaderboard.
func (s *Server) newSession(player, name string, grid deck.Grid, images []deck.Image, delay time.Duration) *store.Session {
	id := uuid.NewString()
	logger := log.With().Str("gameId", id).Logger()

	byURL := make(map[string]deck.Image, len(images))
	for _, img := range images {
		byURL[img.URL] = img
	}

	sess := &store.Session{
		ID:         id,
		PlayerID:   player,
		PlayerName: name,
		Grid:       grid,
		Images:     byURL,
		Feed:       match.NewBroadcaster(0),
		CreatedAt:  time.Now(),
		Controller: match.NewController(match.Options{
			MismatchDelay: delay,
			PeekDuration:  time.Duration(s.cfg.Game.PeekSeconds) * time.Second,
			Scheduler:     s.sched,
			Logger:        &logger,
		}),
	}
	sess.Controller.Subscribe(sess.Feed)
	sess.Controller.Subscribe(s.metrics)
	sess.Controller.Subscribe(match.ListenerFunc(func(e match.Event) {
		if e.Kind != match.EventRoundComplete || e.Result == nil {
			return
		}
		// Listeners run under the controller lock; keep disk I/O off it.
		res := *e.Result
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.recordScore(sess, res)
		}()
	}))
	return sess
}

// recordScore stores a finished round on the leaderboard. Failures are logged;
// the round itself is already complete.
func (s *Server) recordScore(sess *store.Session, res match.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	err := s.scores.Record(ctx, scores.Entry{
		Player:         sess.PlayerName,
		Score:          res.MatchedPairs,
		Flips:          res.Flips,
		ElapsedSeconds: res.ElapsedSeconds,
		Pairs:          res.TotalPairs,
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("record score")
		return
	}
	log.Info().
		Str("gameId", sess.ID).
		Int("flips", res.Flips).
		Int("elapsed", res.ElapsedSeconds).
		Msg("round complete")
}

// ownedSession loads the session named in the URL, answering 404 when it is
// missing or belongs to another player.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request) *store.Session {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil || sess.PlayerID != playerID(r) {
		writeError(w, http.StatusNotFound, "not_found", "")
		return nil
	}
	sess.Touch()
	return sess
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess := s.ownedSession(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	sess := s.ownedSession(w, r)
	if sess == nil {
		return
	}
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "bad_json", "index is required")
		return
	}
	accepted := sess.Controller.Flip(*req.Index)
	s.metrics.Flip(accepted)
	writeJSON(w, http.StatusOK, flipRes{Accepted: accepted, Game: s.view(sess)})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	sess := s.ownedSession(w, r)
	if sess == nil {
		return
	}
	sess.Controller.EndPeek()
	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sess := s.ownedSession(w, r)
	if sess == nil {
		return
	}
	if err := s.sessions.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("gameId", sess.ID).Msg("delete session")
		writeError(w, http.StatusInternalServerError, "delete_failed", "")
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// view projects the session's current snapshot.
func (s *Server) view(sess *store.Session) gameView {
	snap, _ := sess.Controller.Snapshot()
	return s.viewOf(sess, snap)
}

// viewOf projects snap, hiding the image of every face-down card.
func (s *Server) viewOf(sess *store.Session, snap match.Snapshot) gameView {
	cards := make([]cardView, len(snap.Cards))
	for i, c := range snap.Cards {
		cv := cardView{Index: i, State: c.State}
		if c.State != match.FaceDown {
			cv.URL = c.ID
			cv.Title = sess.Images[c.ID].Title
		}
		cards[i] = cv
	}
	revealed := snap.Revealed
	if revealed == nil {
		revealed = []int{}
	}
	return gameView{
		GameID:          sess.ID,
		Player:          sess.PlayerName,
		Grid:            sess.Grid,
		MismatchDelayMs: sess.Controller.MismatchDelay().Milliseconds(),
		Cards:           cards,
		Revealed:        revealed,
		MatchedPairs:    snap.MatchedPairs,
		TotalPairs:      snap.TotalPairs,
		Flips:           snap.Flips,
		ElapsedSeconds:  snap.ElapsedSeconds,
		Resolving:       snap.Resolving,
		Active:          snap.Active,
		Peeking:         snap.Peeking,
		Complete:        snap.Complete,
	}
}
