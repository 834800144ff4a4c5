package types

// Snapshot is one fetched quote for a contract at a point in time.
type Snapshot struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	Turnover      float64 `json:"turnover"`
	OpenInterest  float64 `json:"open_interest"`
	Settlement    float64 `json:"settlement"`
	Ts            int64   `json:"ts"`
}

// StrategyRequest describes one streaming strategy analysis run.
type StrategyRequest struct {
	Symbol string    `json:"symbol"`
	Levels []float64 `json:"levels,omitempty"`
}

type NewsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content,omitempty"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
	Topic       string `json:"topic,omitempty"`
}
