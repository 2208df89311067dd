package domain

// Portfolio maps symbols to held amounts. Writes replace the whole mapping.
type Portfolio struct {
	UserID   int64              `json:"userId"`
	Holdings map[string]float64 `json:"holdings"`
}

type PortfolioValuation struct {
	Holdings map[string]float64
	Prices   map[string]float64
	Values   map[string]float64
	Total    float64
	// Missing lists held symbols without a current price.
	Missing []string
}
