// internal/httpserver/events.go
//
// Websocket event stream for renderers: GET /game/{id}/events.
// The first message is a "snapshot" of the round; every controller event
// follows as it happens, with face-down images masked as in the JSON API.
// The stream ends when the client goes away or the session is discarded.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/robalobadob/astromatch/internal/match"
)

const wsWriteTimeout = 5 * time.Second

// eventMsg is one message on the event stream.
type eventMsg struct {
	Kind   string        `json:"kind"`
	Cards  []int         `json:"cards,omitempty"`
	Game   gameView      `json:"game"`
	Result *match.Result `json:"result,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.ownedSession(w, r)
	if sess == nil {
		return
	}

	// Subscribe before the snapshot so nothing falls between the two.
	events, unsubscribe := sess.Feed.Subscribe()
	defer unsubscribe()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("websocket accept")
		return
	}
	defer c.CloseNow()

	// Clients only listen; CloseRead cancels ctx when they disconnect.
	ctx := c.CloseRead(r.Context())

	if err := s.writeEvent(ctx, c, eventMsg{Kind: "snapshot", Game: s.view(sess)}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				// Session discarded (replaced, swept, or left).
				c.Close(websocket.StatusNormalClosure, "round closed")
				return
			}
			msg := eventMsg{
				Kind:   string(e.Kind),
				Cards:  e.Cards,
				Game:   s.viewOf(sess, e.Snapshot),
				Result: e.Result,
			}
			if err := s.writeEvent(ctx, c, msg); err != nil {
				log.Debug().Err(err).Str("gameId", sess.ID).Msg("websocket write")
				return
			}
			if e.Kind == match.EventRoundAbandoned {
				c.Close(websocket.StatusNormalClosure, "round abandoned")
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, c *websocket.Conn, msg eventMsg) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}
