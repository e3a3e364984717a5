package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	"FuelPhases/pkg/cache"
	pkgkafka "FuelPhases/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,fuel,region_plz3,price_mean,price_std,brent_oil_eur
2024-01-01,E10,101,1.75,0.02,70.5
2024-01-02,e10,101,1.76,,
2024-01-03,e10,101,1.77,0.03,NaN
`

func TestReadObservationsCSV(t *testing.T) {
	tbl, err := ReadObservationsCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.True(t, tbl.HasColumn(models.ColBenchmarkPrice))
	assert.True(t, tbl.HasColumn(models.ColRegion))
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "e10", tbl.Rows[0].Fuel)
	assert.Equal(t, day("2024-01-01"), tbl.Rows[0].Date)
	require.NotNil(t, tbl.Rows[0].BenchmarkPrice)
	assert.Equal(t, 70.5, *tbl.Rows[0].BenchmarkPrice)
	assert.Nil(t, tbl.Rows[1].PriceStd)
	assert.Nil(t, tbl.Rows[2].BenchmarkPrice)
}

func TestReadObservationsCSVMissingColumnsAreReported(t *testing.T) {
	tbl, err := ReadObservationsCSV(strings.NewReader("date,fuel\n2024-01-01,e5\n"))
	require.NoError(t, err)
	assert.False(t, tbl.HasColumn(models.ColPriceMean))
	assert.Equal(t, []string{"date", "fuel"}, tbl.Columns)
}

func TestReadObservationsCSVBadValues(t *testing.T) {
	_, err := ReadObservationsCSV(strings.NewReader("date,fuel,price_mean\n01/02/2024,e5,1.7\n"))
	assert.ErrorIs(t, err, models.ErrMalformedInput)

	_, err = ReadObservationsCSV(strings.NewReader("date,fuel,price_mean\n2024-01-02,e5,abc\n"))
	var ie *models.InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, models.ColPriceMean, ie.Field)
	assert.Equal(t, 0, ie.Row)

	_, err = ReadObservationsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, models.ErrMalformedInput)
}

func TestCSVObservationStoreFiltersDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	store := NewCSVObservationStore(path)
	tbl, err := store.LoadObservations(context.Background(), domrepo.ObservationQuery{
		Fuel: "e10",
		From: day("2024-01-02"),
	})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, day("2024-01-02"), tbl.Rows[0].Date)

	_, err = NewCSVObservationStore(filepath.Join(t.TempDir(), "nope.csv")).
		LoadObservations(context.Background(), domrepo.ObservationQuery{Fuel: "e10"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type stubObservationStore struct {
	calls int
	err   error
	tbl   *models.Table
}

func (s *stubObservationStore) LoadObservations(context.Context, domrepo.ObservationQuery) (*models.Table, error) {
	s.calls++
	return s.tbl, s.err
}

func TestBreakerObservationStoreTrips(t *testing.T) {
	stub := &stubObservationStore{err: errors.New("timeout")}
	store := NewBreakerObservationStore(stub, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, nil)
	ctx := context.Background()
	q := domrepo.ObservationQuery{Fuel: "e5"}

	_, err := store.LoadObservations(ctx, q)
	require.Error(t, err)
	_, err = store.LoadObservations(ctx, q)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen.String(), store.State())

	_, err = store.LoadObservations(ctx, q)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 2, stub.calls)
}

func TestBreakerObservationStoreIgnoresMalformedInput(t *testing.T) {
	stub := &stubObservationStore{err: models.NewColumnError(models.ColDate, "bad")}
	store := NewBreakerObservationStore(stub, BreakerConfig{FailureThreshold: 1}, nil)

	for i := 0; i < 3; i++ {
		_, err := store.LoadObservations(context.Background(), domrepo.ObservationQuery{Fuel: "e5"})
		assert.ErrorIs(t, err, models.ErrMalformedInput)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), store.State())

	stub.err = nil
	stub.tbl = &models.Table{Columns: models.FullColumns()}
	tbl, err := store.LoadObservations(context.Background(), domrepo.ObservationQuery{Fuel: "e5"})
	require.NoError(t, err)
	assert.Same(t, stub.tbl, tbl)
}

func TestCacheResultStore(t *testing.T) {
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	store := NewCacheResultStore(mem, time.Minute)
	ctx := context.Background()

	res := &models.MarketPhases{
		Timeseries: []models.TimeseriesPoint{},
		Phases:     []models.PhaseInterval{},
		Meta:       models.Meta{OilAvailable: false, Error: "no benchmark data"},
	}
	keyE10 := domrepo.ResultKey("e10", "", "", "")
	keyE10R := domrepo.ResultKey("e10", "101", "2024-01-01", "")
	keyE5 := domrepo.ResultKey("e5", "", "", "")
	assert.Equal(t, "market_phases:e10:all:-:-", keyE10)

	_, ok, err := store.GetResult(ctx, keyE10)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, k := range []string{keyE10, keyE10R, keyE5} {
		require.NoError(t, store.SetResult(ctx, k, res))
	}
	got, ok, err := store.GetResult(ctx, keyE10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "no benchmark data", got.Meta.Error)

	require.NoError(t, store.InvalidateFuel(ctx, "e10"))
	_, ok, _ = store.GetResult(ctx, keyE10R)
	assert.False(t, ok)
	_, ok, _ = store.GetResult(ctx, keyE5)
	assert.True(t, ok)
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaPublisherPublishComputed(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "none"), "phases.computed")

	ev := &models.PhaseComputed{ID: "ev-1", Fuel: "diesel", NDays: 30, Phases: []models.PhaseInterval{}}
	require.NoError(t, pub.PublishComputed(context.Background(), ev))
	require.NoError(t, pub.PublishMessage(context.Background(), "logs", map[string]string{"k": "v"}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "phases.computed", w.msgs[0].Topic)
	assert.Equal(t, []byte("diesel"), w.msgs[0].Key)
	assert.Equal(t, "ev-1", string(w.msgs[0].Headers[0].Value))

	var decoded models.PhaseComputed
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 30, decoded.NDays)
	assert.Equal(t, "logs", w.msgs[1].Topic)
}
