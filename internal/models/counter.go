package models

import "time"

// Counter is one dashboard counter projection row.
type Counter struct {
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counter names maintained in dashboard_counters.
const (
	CounterDrivers    = "driver-count"
	CounterPassengers = "passenger-count"
)

// DashboardOverview is the aggregate payload for the dashboard landing page.
type DashboardOverview struct {
	DriverCount    int64           `json:"driver_count"`
	PassengerCount int64           `json:"passenger_count"`
	QueuedCount    int64           `json:"queued_count"`
	QueuesByZone   map[string]int64 `json:"queues_by_zone"`
	FeesToday      int64           `json:"fees_today"`     // centavos collected today
	RechargesToday int64           `json:"recharges_today"`
}
