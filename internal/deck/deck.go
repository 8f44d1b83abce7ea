// internal/deck/deck.go
//
// Deck construction for the memory grid.
// Responsibilities:
//   - Validate grid settings (dimension bounds, even card count).
//   - Keep only still images from an image listing.
//   - Pair images and shuffle them with an unbiased Fisher–Yates pass.
//
// Everything here is stateless; the randomness source is passed in.
package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/robalobadob/astromatch/internal/match"
)

// MediaTypeImage is the only media type that can be dealt as a card.
const MediaTypeImage = "image"

var (
	ErrOddGrid          = errors.New("grid must have an even number of cards")
	ErrGridRange        = errors.New("grid dimensions out of range")
	ErrInvalidPairCount = errors.New("pair count must be positive")
	ErrNotEnoughImages  = errors.New("not enough images for the grid")
)

// Image is one entry returned by an image source.
type Image struct {
	URL       string `json:"url"`
	MediaType string `json:"mediaType"`
	Title     string `json:"title,omitempty"`
}

// Limits bounds the grid dimensions a player may pick.
type Limits struct {
	MinDim int
	MaxDim int
}

// Grid is the rows × columns layout chosen for a round.
type Grid struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cards returns the number of cards in the grid.
func (g Grid) Cards() int { return g.Rows * g.Cols }

// Pairs returns the number of pairs needed to fill the grid.
func (g Grid) Pairs() int { return g.Cards() / 2 }

// Validate checks the grid against limits and requires an even card count.
func (g Grid) Validate(l Limits) error {
	if g.Rows < l.MinDim || g.Rows > l.MaxDim || g.Cols < l.MinDim || g.Cols > l.MaxDim {
		return fmt.Errorf("%w: %dx%d not within %d..%d", ErrGridRange, g.Rows, g.Cols, l.MinDim, l.MaxDim)
	}
	if g.Cards()%2 != 0 {
		return fmt.Errorf("%w: %dx%d", ErrOddGrid, g.Rows, g.Cols)
	}
	return nil
}

// FilterImages keeps entries whose media type is "image", dropping entries
// without a URL and repeated URLs (the URL is the match key).
func FilterImages(images []Image) []Image {
	seen := make(map[string]struct{}, len(images))
	out := make([]Image, 0, len(images))
	for _, img := range images {
		if img.MediaType != MediaTypeImage {
			continue
		}
		url := strings.TrimSpace(img.URL)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		img.URL = url
		out = append(out, img)
	}
	return out
}

// Build duplicates the first pairCount images into pairs and returns them in
// a uniformly random order. rng may be nil, in which case the global source is used.
func Build(images []Image, pairCount int, rng *rand.Rand) ([]match.Card, error) {
	if pairCount <= 0 {
		return nil, ErrInvalidPairCount
	}
	if len(images) < pairCount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughImages, len(images), pairCount)
	}

	cards := make([]match.Card, 0, 2*pairCount)
	for _, img := range images[:pairCount] {
		cards = append(cards, match.Card{ID: img.URL}, match.Card{ID: img.URL})
	}
	shuffle(cards, rng)
	return cards, nil
}

// shuffle is a Fisher–Yates pass: for i from n-1 down to 1, swap i with a
// uniform j in [0, i].
func shuffle(cards []match.Card, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := intN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
