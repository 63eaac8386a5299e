package chessdto

type ProfileDTO struct {
	Level      int     `json:"level"`
	Name       string  `json:"name"`
	Elo        int     `json:"elo"`
	MaxDepth   int     `json:"max_depth"`
	Randomness float64 `json:"randomness"`
}

type PlayerDTO struct {
	Name   string      `json:"name"`
	Human  bool        `json:"human"`
	Rating int         `json:"rating"`
	Level  *ProfileDTO `json:"level,omitempty"`
}
