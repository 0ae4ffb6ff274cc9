package market

import "time"

// Panel identifiers for the fixed set of dashboard series.
const (
	PanelUSDBRL = "usdbrl"
	PanelIBOV   = "ibov"
	PanelSPY    = "spy"
	PanelBTC    = "btc"
	PanelSelic  = "selic"
)

// Panel describes one dashboard series and how it is refreshed.
type Panel struct {
	ID       string
	Title    string
	Unit     string        // "BRL", "USD", "pts", "% a.a."
	Schedule string        // cron spec, e.g. "@every 15m"
	TTL      time.Duration // minimum age before a refresh hits providers again
}

// Point is a single observation in a series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a time-ordered list of observations.
type Series struct {
	Points []Point `json:"points"`
}

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// Last returns the most recent observation value, or 0 when empty.
func (s Series) Last() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Value
}

// Snapshot captures the result of one successful refresh of a panel.
type Snapshot struct {
	ID          string    `json:"id"`
	Panel       string    `json:"panel"`
	Price       float64   `json:"price"`
	Source      string    `json:"source"`
	Points      []Point   `json:"points"`
	CollectedAt time.Time `json:"collected_at"`
	CreatedAt   time.Time `json:"created_at"`
}
