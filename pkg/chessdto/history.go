package chessdto

import "time"

// MatchSummary 는 아카이브에 저장된 종료 대국의 목록용 요약.
type MatchSummary struct {
	ID          string        `json:"id"`
	White       string        `json:"white"`
	Black       string        `json:"black"`
	TimeControl string        `json:"time_control"`
	Result      string        `json:"result"`
	EndReason   string        `json:"end_reason"`
	Opening     string        `json:"opening,omitempty"`
	Plies       int           `json:"plies"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`
	PGN         string        `json:"pgn,omitempty"`
}
