package services

import (
	"context"
	"log"
	"time"

	"toda-backend/internal/models"
	"toda-backend/internal/timeutil"
)

// counterStore is the slice of CounterRepository this service needs.
type counterStore interface {
	Get(ctx context.Context, name string) (*models.Counter, error)
	CompareAndSet(ctx context.Context, name string, old, value int64) (bool, error)
	Set(ctx context.Context, name string, value int64) error
}

type driverCounts interface {
	Count(ctx context.Context) (int64, error)
	QueuedCounts(ctx context.Context) (map[string]int64, error)
}

type passengerCounts interface {
	Count(ctx context.Context) (int64, error)
}

type ledgerTotals interface {
	TotalsForRange(ctx context.Context, start, end time.Time) (charged, recharged int64, err error)
}

// CounterService serves dashboard counters and keeps the projection table
// honest: every read re-derives the count from its source table and
// compare-and-sets the stored row when they differ. The Redis layer in
// front of Overview bounds how often that costs a source-table count.
type CounterService struct {
	counters   counterStore
	drivers    driverCounts
	passengers passengerCounts
	ledger     ledgerTotals
}

func NewCounterService(counters counterStore, drivers driverCounts, passengers passengerCounts, ledger ledgerTotals) *CounterService {
	return &CounterService{
		counters:   counters,
		drivers:    drivers,
		passengers: passengers,
		ledger:     ledger,
	}
}

// GetCounter returns the counter value for a dashboard read. Every read
// re-derives the truth and repairs the stored projection when the two
// disagree, so a drifted counter never outlives the read that saw it.
func (s *CounterService) GetCounter(ctx context.Context, name string) (int64, error) {
	return s.Refresh(ctx, name)
}

// Refresh re-derives one counter from its source table and writes it back
// with a compare-and-set. Losing the race to a concurrent refresher is
// fine; both computed the same truth.
func (s *CounterService) Refresh(ctx context.Context, name string) (int64, error) {
	truth, err := s.derive(ctx, name)
	if err != nil {
		return 0, err
	}

	counter, err := s.counters.Get(ctx, name)
	if err != nil {
		if serr := s.counters.Set(ctx, name, truth); serr != nil {
			return 0, serr
		}
		return truth, nil
	}

	if counter.Value != truth {
		applied, err := s.counters.CompareAndSet(ctx, name, counter.Value, truth)
		if err != nil {
			return 0, err
		}
		if applied {
			log.Printf("[Counters] repaired %s: %d -> %d", name, counter.Value, truth)
		}
	}
	return truth, nil
}

// RefreshAll refreshes every known counter. Called periodically and after
// bulk writes.
func (s *CounterService) RefreshAll(ctx context.Context) {
	for _, name := range []string{models.CounterDrivers, models.CounterPassengers} {
		if _, err := s.Refresh(ctx, name); err != nil {
			log.Printf("[Counters] refresh of %s failed: %v", name, err)
		}
	}
}

// Overview assembles the dashboard landing payload.
func (s *CounterService) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	driverCount, err := s.GetCounter(ctx, models.CounterDrivers)
	if err != nil {
		return nil, err
	}
	passengerCount, err := s.GetCounter(ctx, models.CounterPassengers)
	if err != nil {
		return nil, err
	}

	queues, err := s.drivers.QueuedCounts(ctx)
	if err != nil {
		return nil, err
	}
	var queued int64
	for _, n := range queues {
		queued += n
	}

	now := timeutil.Now()
	charged, recharged, err := s.ledger.TotalsForRange(ctx, timeutil.StartOfDay(now), timeutil.EndOfDay(now))
	if err != nil {
		return nil, err
	}

	return &models.DashboardOverview{
		DriverCount:    driverCount,
		PassengerCount: passengerCount,
		QueuedCount:    queued,
		QueuesByZone:   queues,
		FeesToday:      charged,
		RechargesToday: recharged,
	}, nil
}

func (s *CounterService) derive(ctx context.Context, name string) (int64, error) {
	switch name {
	case models.CounterDrivers:
		return s.drivers.Count(ctx)
	case models.CounterPassengers:
		return s.passengers.Count(ctx)
	}
	return 0, &unknownCounterError{name: name}
}

type unknownCounterError struct{ name string }

func (e *unknownCounterError) Error() string { return "unknown counter: " + e.name }
