package model

import "time"

// PortfolioReport bundles everything the xlsx generator renders for one user.
type PortfolioReport struct {
	User        string
	GeneratedAt time.Time
	AsOf        time.Time
	Holdings    []Holding
	GainLoss    map[string]GainLossRecord
	Performance PerformanceResult
}
