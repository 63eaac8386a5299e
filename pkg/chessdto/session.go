package chessdto

import "time"

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// CapturedPieces 는 잡힌 기물의 색 기준. White 는 잡힌 백 기물.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type ClockDTO struct {
	TimeControl string        `json:"time_control"`
	White       time.Duration `json:"white"`
	Black       time.Duration `json:"black"`
	Elapsed     time.Duration `json:"elapsed"`
	Untimed     bool          `json:"untimed"`
}

// MatchSnapshot 은 화면 표시와 외부 소비자를 위한 대국 상태.
type MatchSnapshot struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	GameStatus string         `json:"game_status"`
	Result     string         `json:"result"`
	EndReason  string         `json:"end_reason,omitempty"`
	DrawReason string         `json:"draw_reason,omitempty"`
	Turn       string         `json:"turn"`
	FEN        string         `json:"fen"`
	MovesSAN   []string       `json:"moves_san"`
	MovesUCI   []string       `json:"moves_uci"`
	MoveCount  int            `json:"move_count"`
	Check      bool           `json:"check"`
	Material   MaterialScore  `json:"material"`
	Captured   CapturedPieces `json:"captured"`
	Clock      ClockDTO       `json:"clock"`
	White      PlayerDTO      `json:"white"`
	Black      PlayerDTO      `json:"black"`
	Opening    string         `json:"opening,omitempty"`
	DrawOffer  string         `json:"draw_offer,omitempty"`
	LastMove   *MoveDTO       `json:"last_move,omitempty"`
	Analysis   bool           `json:"analysis"`
	Rated      bool           `json:"rated"`
}
