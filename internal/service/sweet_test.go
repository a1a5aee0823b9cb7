package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/sweetshop/internal/events"
	"github.com/Skotchmaster/sweetshop/internal/models"
)

func TestSweetService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.sweet(t, " Choco Bar ", "Chocolate", 5, 10)
	assert.Equal(t, "Choco Bar", s.Name)
	assert.Contains(t, f.index.docs, s.ID)

	got, err := f.sweets.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	upd, err := f.sweets.Update(ctx, s.ID, SweetInput{Name: "Dark Bar", Category: "Chocolate", Price: 7, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "Dark Bar", upd.Name)
	assert.Equal(t, "Dark Bar", f.index.docs[s.ID].Name)

	_, err = f.sweets.Update(ctx, uuid.New(), SweetInput{Name: "x", Category: "y"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.sweets.Delete(ctx, s.ID))
	assert.NotContains(t, f.index.docs, s.ID)
	assert.ErrorIs(t, f.sweets.Delete(ctx, s.ID), ErrNotFound)
	_, err = f.sweets.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t,
		[]string{events.SweetCreated, events.SweetUpdated, events.SweetDeleted},
		f.events.Types(events.TopicSweets))
}

func TestSweetService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []SweetInput{
		{Name: "", Category: "c", Price: 1},
		{Name: "n", Category: " ", Price: 1},
		{Name: "n", Category: "c", Price: -1},
		{Name: "n", Category: "c", Price: 1, Quantity: -1},
	} {
		_, err := f.sweets.Create(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
}

func TestSweetService_PurchaseRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.sweet(t, "Gummy", "Candy", 1, 5)

	got, err := f.sweets.Purchase(ctx, s.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = f.sweets.Purchase(ctx, s.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	got, err = f.sweets.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	got, err = f.sweets.Restock(ctx, s.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Quantity)
	assert.Equal(t, 12, f.index.docs[s.ID].Quantity)

	for _, q := range []int{0, -1} {
		_, err = f.sweets.Purchase(ctx, s.ID, q)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = f.sweets.Restock(ctx, s.ID, q)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}

	_, err = f.sweets.Purchase(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.sweets.Restock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PurchasesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PurchasesTotal.WithLabelValues("insufficient")))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.UnitsSoldTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RestocksTotal))
}

func TestSweetService_ConcurrentPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 50
	s := f.sweet(t, "Lollipop", "Candy", 0.5, n)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.sweets.Purchase(ctx, s.ID, 1); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Empty(t, failures)

	got, err := f.sweets.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	_, err = f.sweets.Purchase(ctx, s.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestSweetService_SearchPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	choco := f.sweet(t, "Choco Bar", "Chocolate", 5, 1)
	toffee := f.sweet(t, "Toffee", "Candy", 2, 1)
	truffle := f.sweet(t, "Truffle", "chocolate", 12, 1)

	ids := func(items []models.Sweet) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}
	search := func(fl SearchFilter) []uuid.UUID {
		items, err := f.sweets.Search(ctx, fl)
		require.NoError(t, err)
		return ids(items)
	}

	assert.Equal(t, []uuid.UUID{choco.ID},
		search(SearchFilter{Name: ptr("choco"), Category: ptr("chocolate"), MinPrice: ptr(1.0), MaxPrice: ptr(10.0)}))

	// Name wins over a category that would match nothing.
	assert.Equal(t, []uuid.UUID{choco.ID},
		search(SearchFilter{Name: ptr("choco"), Category: ptr("choco")}))
	assert.Equal(t, []uuid.UUID{choco.ID}, search(SearchFilter{Name: ptr("CHOCO")}))

	assert.Equal(t, []uuid.UUID{choco.ID, truffle.ID},
		search(SearchFilter{Category: ptr("CHOCOLATE"), MinPrice: ptr(0.0), MaxPrice: ptr(3.0)}))

	assert.Equal(t, []uuid.UUID{choco.ID, toffee.ID},
		search(SearchFilter{MinPrice: ptr(1.0), MaxPrice: ptr(5.0)}))

	// A lone bound is not a range.
	assert.Equal(t, []uuid.UUID{choco.ID, toffee.ID, truffle.ID}, search(SearchFilter{MinPrice: ptr(100.0)}))
	assert.Equal(t, []uuid.UUID{choco.ID, toffee.ID, truffle.ID}, search(SearchFilter{}))
}

func TestSweetService_FullText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gummy := f.sweet(t, "Gummy Bears", "Candy", 2, 1)
	f.sweet(t, "Choco Bar", "Chocolate", 5, 1)

	total, items, err := f.sweets.FullText(ctx, "gummy", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, gummy.ID, items[0].ID)

	_, _, err = f.sweets.FullText(ctx, "  ", 1, 10)
	assert.ErrorIs(t, err, ErrValidation)

	noIndex := &SweetService{Repo: f.repo}
	_, _, err = noIndex.FullText(ctx, "gummy", 1, 10)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSweetService_IndexFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.index.err = errors.New("es down")

	s, err := f.sweets.Create(context.Background(), SweetInput{Name: "Mint", Category: "Candy", Price: 1, Quantity: 1})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID)
}
