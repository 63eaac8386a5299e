package chessdto

import "time"

type MoveDTO struct {
	UCI       string `json:"uci"`
	SAN       string `json:"san,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Captured  string `json:"captured,omitempty"`
	Color     string `json:"color"`
}

// SearchSummary 는 AI 가 수를 고른 과정의 요약.
type SearchSummary struct {
	Level    int           `json:"level"`
	Depth    int           `json:"depth"`
	Score    float64       `json:"score"`
	Nodes    int64         `json:"nodes"`
	Random   bool          `json:"random"`
	Book     bool          `json:"book"`
	Duration time.Duration `json:"duration"`
}

// MoveSummary 는 한 수를 확정한 뒤의 결과.
type MoveSummary struct {
	Move     MoveDTO        `json:"move"`
	Search   *SearchSummary `json:"search,omitempty"`
	Finished bool           `json:"finished"`
	State    *MatchSnapshot `json:"state"`
}
