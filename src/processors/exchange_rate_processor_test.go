package processors

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/snapfolio/backend/src/logger"
	"github.com/username/snapfolio/backend/src/models"
)

func init() {
	logger.InitLogger("error")
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// rateSnapshotStore serves only RateForDate; the resolver touches nothing
// else on the snapshot side.
type rateSnapshotStore struct {
	rates map[string]*decimal.Decimal
	calls int
}

func (f *rateSnapshotStore) RateForDate(_ context.Context, date time.Time) (*decimal.Decimal, error) {
	f.calls++
	return f.rates[models.FormatDate(date)], nil
}

func (f *rateSnapshotStore) Get(context.Context, string, time.Time, string) (*models.PortfolioSnapshot, error) {
	return nil, nil
}

func (f *rateSnapshotStore) Save(context.Context, *models.PortfolioSnapshot) error {
	return nil
}

func (f *rateSnapshotStore) EarliestTotal(context.Context, string, string) (*decimal.Decimal, error) {
	return nil, nil
}

func (f *rateSnapshotStore) History(context.Context, string, string, int) ([]models.PortfolioSnapshot, error) {
	return nil, nil
}

func (f *rateSnapshotStore) ListSince(context.Context, time.Time) ([]models.PortfolioSnapshot, error) {
	return nil, nil
}

type fakeIndexStore struct {
	exact      map[string]*decimal.Decimal
	atOrBefore map[string]*decimal.Decimal
	exactCalls int
}

func (f *fakeIndexStore) GetRate(_ context.Context, date time.Time) (*decimal.Decimal, error) {
	f.exactCalls++
	return f.exact[models.FormatDate(date)], nil
}

func (f *fakeIndexStore) GetLatestRateAtOrBefore(_ context.Context, date time.Time) (*decimal.Decimal, error) {
	return f.atOrBefore[models.FormatDate(date)], nil
}

func (f *fakeIndexStore) UpsertDay(context.Context, *models.MarketIndexSnapshot) error {
	return nil
}

func TestResolveSnapshotRateWins(t *testing.T) {
	snapshots := &rateSnapshotStore{rates: map[string]*decimal.Decimal{
		"2025-03-10": dp("1325.5"),
	}}
	indices := &fakeIndexStore{exact: map[string]*decimal.Decimal{
		"2025-03-10": dp("1310"),
	}}
	resolver := NewRateResolver(snapshots, indices, d("1300"))

	rate, err := resolver.Resolve(context.Background(), day("2025-03-10"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1325.5")))
	// The snapshot tier short-circuits before the index is consulted.
	assert.Zero(t, indices.exactCalls)
}

func TestResolveExactIndexRate(t *testing.T) {
	snapshots := &rateSnapshotStore{}
	indices := &fakeIndexStore{exact: map[string]*decimal.Decimal{
		"2025-03-10": dp("1310"),
	}}
	resolver := NewRateResolver(snapshots, indices, d("1300"))

	rate, err := resolver.Resolve(context.Background(), day("2025-03-10"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1310")))
}

func TestResolveFallsBackToEarlierIndexRate(t *testing.T) {
	// A Monday with no record; Friday's rate is the most recent one.
	snapshots := &rateSnapshotStore{}
	indices := &fakeIndexStore{atOrBefore: map[string]*decimal.Decimal{
		"2025-03-10": dp("1307.25"),
	}}
	resolver := NewRateResolver(snapshots, indices, d("1300"))

	rate, err := resolver.Resolve(context.Background(), day("2025-03-10"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1307.25")))
}

func TestResolveDefaultsWhenNoHistoryExists(t *testing.T) {
	resolver := NewRateResolver(&rateSnapshotStore{}, &fakeIndexStore{}, d("1300"))

	rate, err := resolver.Resolve(context.Background(), day("2025-03-10"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1300")))
}

func TestResolveCachesIndexBackedRates(t *testing.T) {
	snapshots := &rateSnapshotStore{}
	indices := &fakeIndexStore{exact: map[string]*decimal.Decimal{
		"2025-03-10": dp("1310"),
	}}
	resolver := NewRateResolver(snapshots, indices, d("1300"))
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, day("2025-03-10"))
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, day("2025-03-10"))
	require.NoError(t, err)

	assert.Equal(t, 1, indices.exactCalls)
}

func TestResolveDoesNotCacheSnapshotRates(t *testing.T) {
	// Mid-recalculation the first written cell of a date starts answering the
	// snapshot tier; a cached earlier answer would mask it.
	snapshots := &rateSnapshotStore{rates: map[string]*decimal.Decimal{
		"2025-03-10": dp("1325.5"),
	}}
	resolver := NewRateResolver(snapshots, &fakeIndexStore{}, d("1300"))
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, day("2025-03-10"))
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, day("2025-03-10"))
	require.NoError(t, err)

	assert.Equal(t, 2, snapshots.calls)
}

func TestResolveTruncatesToDate(t *testing.T) {
	snapshots := &rateSnapshotStore{rates: map[string]*decimal.Decimal{
		"2025-03-10": dp("1325.5"),
	}}
	resolver := NewRateResolver(snapshots, &fakeIndexStore{}, d("1300"))

	noon := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	rate, err := resolver.Resolve(context.Background(), noon)
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1325.5")))
}
