package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/park285/cheese-arena/internal/chess"
)

const (
	defaultHumanRating = 1200
	eloK               = 32
)

// Player 는 사람 또는 난이도 레벨을 가진 AI.
type Player struct {
	Name   string `json:"name"`
	Human  bool   `json:"human"`
	Level  int    `json:"level,omitempty"`
	Rating int    `json:"rating"`
}

func HumanPlayer(name string) Player {
	if strings.TrimSpace(name) == "" {
		name = "Player"
	}
	return Player{Name: name, Human: true, Rating: defaultHumanRating}
}

func AIPlayer(p chess.DifficultyProfile) Player {
	return Player{
		Name:   fmt.Sprintf("Cheese %s (L%d)", p.Name, p.Level),
		Level:  p.Level,
		Rating: p.Elo,
	}
}

// ParsePlayer 는 "human", "human:이름" 또는 난이도 별칭을 받는다.
func ParsePlayer(raw string) (Player, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Player{}, fmt.Errorf("player: empty value")
	}
	kind, name, _ := strings.Cut(v, ":")
	if strings.EqualFold(kind, "human") {
		return HumanPlayer(name), nil
	}
	p, err := chess.GetProfile(v)
	if err != nil {
		return Player{}, fmt.Errorf("player %q: %w", raw, err)
	}
	return AIPlayer(p), nil
}

func (p Player) Profile() (chess.DifficultyProfile, error) {
	if p.Human {
		return chess.DifficultyProfile{}, fmt.Errorf("player %q is human", p.Name)
	}
	return chess.ProfileForLevel(p.Level)
}

// EloDelta 는 K=32 기준 레이팅 변화량. score 는 1, 0.5, 0.
func EloDelta(rating, opponent int, score float64) int {
	expected := 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
	return int(math.Round(eloK * (score - expected)))
}
