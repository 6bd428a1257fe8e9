package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/models"
)

type fakeCounterStore struct {
	values map[string]int64
	casLog []string
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{values: make(map[string]int64)}
}

func (f *fakeCounterStore) Get(ctx context.Context, name string) (*models.Counter, error) {
	v, ok := f.values[name]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &models.Counter{Name: name, Value: v}, nil
}

func (f *fakeCounterStore) CompareAndSet(ctx context.Context, name string, old, value int64) (bool, error) {
	f.casLog = append(f.casLog, name)
	if f.values[name] != old {
		return false, nil
	}
	f.values[name] = value
	return true, nil
}

func (f *fakeCounterStore) Set(ctx context.Context, name string, value int64) error {
	f.values[name] = value
	return nil
}

type fakeDriverCounts struct {
	count  int64
	queues map[string]int64
}

func (f *fakeDriverCounts) Count(ctx context.Context) (int64, error) { return f.count, nil }
func (f *fakeDriverCounts) QueuedCounts(ctx context.Context) (map[string]int64, error) {
	return f.queues, nil
}

type fakePassengerCounts struct{ count int64 }

func (f *fakePassengerCounts) Count(ctx context.Context) (int64, error) { return f.count, nil }

type fakeLedgerTotals struct{ charged, recharged int64 }

func (f *fakeLedgerTotals) TotalsForRange(ctx context.Context, start, end time.Time) (int64, int64, error) {
	return f.charged, f.recharged, nil
}

func newCounterFixture() (*CounterService, *fakeCounterStore, *fakeDriverCounts, *fakePassengerCounts) {
	counters := newFakeCounterStore()
	drivers := &fakeDriverCounts{count: 12, queues: map[string]int64{"poblacion": 3, "san-isidro": 1}}
	passengers := &fakePassengerCounts{count: 40}
	svc := NewCounterService(counters, drivers, passengers, &fakeLedgerTotals{charged: 1500, recharged: 2000})
	return svc, counters, drivers, passengers
}

func TestGetCounter_SeedsMissingProjection(t *testing.T) {
	svc, counters, _, _ := newCounterFixture()

	value, err := svc.GetCounter(context.Background(), models.CounterDrivers)
	require.NoError(t, err)
	assert.Equal(t, int64(12), value)
	assert.Equal(t, int64(12), counters.values[models.CounterDrivers], "projection row should be seeded")
}

func TestGetCounter_RepairsDriftOnRead(t *testing.T) {
	svc, counters, drivers, _ := newCounterFixture()
	counters.values[models.CounterDrivers] = 11 // drifted
	drivers.count = 12

	value, err := svc.GetCounter(context.Background(), models.CounterDrivers)
	require.NoError(t, err)
	assert.Equal(t, int64(12), value, "read should serve the fresh count")
	assert.Equal(t, int64(12), counters.values[models.CounterDrivers], "read should repair the stored projection")
}

func TestOverview_RepairsDriftedProjection(t *testing.T) {
	svc, counters, drivers, _ := newCounterFixture()
	counters.values[models.CounterDrivers] = 7 // drifted
	drivers.count = 12

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), overview.DriverCount, "overview should serve the fresh count")
	assert.Equal(t, int64(12), counters.values[models.CounterDrivers], "overview read should repair the stored projection")
}

func TestRefresh_RepairsDriftedCounter(t *testing.T) {
	svc, counters, drivers, _ := newCounterFixture()
	counters.values[models.CounterDrivers] = 7
	drivers.count = 12

	value, err := svc.Refresh(context.Background(), models.CounterDrivers)
	require.NoError(t, err)
	assert.Equal(t, int64(12), value)
	assert.Equal(t, int64(12), counters.values[models.CounterDrivers])
}

func TestRefresh_NoWriteWhenAccurate(t *testing.T) {
	svc, counters, _, _ := newCounterFixture()
	counters.values[models.CounterDrivers] = 12

	_, err := svc.Refresh(context.Background(), models.CounterDrivers)
	require.NoError(t, err)
	assert.Empty(t, counters.casLog, "accurate counter should not be rewritten")
}

func TestOverview_AggregatesAllSources(t *testing.T) {
	svc, _, _, _ := newCounterFixture()

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), overview.DriverCount)
	assert.Equal(t, int64(40), overview.PassengerCount)
	assert.Equal(t, int64(4), overview.QueuedCount)
	assert.Equal(t, int64(3), overview.QueuesByZone["poblacion"])
	assert.Equal(t, int64(1500), overview.FeesToday)
	assert.Equal(t, int64(2000), overview.RechargesToday)
}

func TestGetCounter_UnknownName(t *testing.T) {
	svc, _, _, _ := newCounterFixture()

	_, err := svc.GetCounter(context.Background(), "made-up")
	require.Error(t, err)
}
