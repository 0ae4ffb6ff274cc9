package heatmap

import "time"

// Cell aggregates the tickers of one B3 sector.
type Cell struct {
	Sector        string  `json:"sector"`
	AvgChangePct  float64 `json:"avg_change_pct"`
	TotalVolume   float64 `json:"total_volume"`
	Constituents  int     `json:"constituents"`
	TopTicker     string  `json:"top_ticker"`
	TopTickerMove float64 `json:"top_ticker_move"`
}

// Board is a full sector heatmap built from one quote list fetch.
type Board struct {
	Cells       []Cell    `json:"cells"`
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}
