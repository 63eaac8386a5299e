package chesspresenter

import (
	"github.com/park285/cheese-arena/internal/chess"
	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

// ToMatchSummary 는 아카이브 레코드를 목록용 DTO 로 바꾼다.
func ToMatchSummary(rec domain.MatchRecord) chessdto.MatchSummary {
	plies := len(rec.MovesUCI)
	if plies == 0 {
		plies = len(rec.MovesSAN)
	}
	return chessdto.MatchSummary{
		ID:          rec.ID,
		White:       rec.WhitePlayer,
		Black:       rec.BlackPlayer,
		TimeControl: rec.TimeControl,
		Result:      rec.Result.PGN(),
		EndReason:   string(rec.EndReason),
		Opening:     rec.Opening,
		Plies:       plies,
		EndedAt:     rec.EndedAt,
		Duration:    rec.Duration,
		PGN:         rec.PGN,
	}
}

func ToMatchSummaries(recs []domain.MatchRecord) []chessdto.MatchSummary {
	out := make([]chessdto.MatchSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ToMatchSummary(rec))
	}
	return out
}

func ToProfiles(ps []chess.DifficultyProfile) []chessdto.ProfileDTO {
	out := make([]chessdto.ProfileDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, match.ProfileDTO(p))
	}
	return out
}
