package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
)

func qty(v float64) *float64 { return &v }

func TestNormalizeCart_ReportsEveryOffendingItem(t *testing.T) {
	good := uuid.NewString()
	_, err := NormalizeCart([]RequestedItem{
		{ProductID: good, Quantity: qty(2)},
		{ProductID: "", Quantity: qty(1)},
		{ProductID: "not-an-id", Quantity: qty(1.5)},
		{ProductID: good, Quantity: qty(-3)},
		{ProductID: good, Quantity: qty(math.NaN())},
	}, false)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{
		"Item 2: productId is required",
		`Item 3: productId "not-an-id" is not a valid id`,
		"Item 3: quantity must be an integer",
		"Item 4: quantity must be at least 1",
		"Item 5: quantity must be an integer",
	}, ve.Details)
}

func TestNormalizeCart_EmptyRejected(t *testing.T) {
	_, err := NormalizeCart(nil, true)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNormalizeCart_DefaultQuantity(t *testing.T) {
	id := uuid.NewString()
	items := []RequestedItem{{ProductID: id}, {ProductID: id, Quantity: qty(0)}}

	_, err := NormalizeCart(items, false)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Item 1: quantity is required", "Item 2: quantity must be at least 1"}, ve.Details)

	lines, err := NormalizeCart(items, true)
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: id, Quantity: 1}, {ProductID: id, Quantity: 1}}, lines)
}

func snapshot(name string, price string, stock int) ProductSnapshot {
	return ProductSnapshot{ID: uuid.NewString(), Name: name, Price: money.MustParse(price), Stock: stock, Active: true}
}

func TestPrice_NotFoundNamesEveryMissingID(t *testing.T) {
	lamp := snapshot("Lamp", "10.00", 5)
	inactive := snapshot("Old", "1.00", 5)
	inactive.Active = false
	missingA, missingB := uuid.NewString(), uuid.NewString()

	_, err := Price([]Line{
		{ProductID: lamp.ID, Quantity: 1},
		{ProductID: missingA, Quantity: 1},
		{ProductID: inactive.ID, Quantity: 1},
		{ProductID: missingA, Quantity: 2},
		{ProductID: missingB, Quantity: 1},
	}, map[string]ProductSnapshot{lamp.ID: lamp, inactive.ID: inactive})

	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{missingA, inactive.ID, missingB}, nf.IDs)
}

func TestPrice_StockErrorListsOnlyShortItems(t *testing.T) {
	lamp := snapshot("Lamp", "10.00", 5)
	desk := snapshot("Desk", "99.99", 1)
	chair := snapshot("Chair", "45.50", 0)

	_, err := Price([]Line{
		{ProductID: lamp.ID, Quantity: 2},
		{ProductID: desk.ID, Quantity: 2},
		{ProductID: chair.ID, Quantity: 1},
	}, map[string]ProductSnapshot{lamp.ID: lamp, desk.ID: desk, chair.ID: chair})

	var se *apperr.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []apperr.Shortage{
		{ProductID: desk.ID, Name: "Desk", Requested: 2, Available: 1},
		{ProductID: chair.ID, Name: "Chair", Requested: 1, Available: 0},
	}, se.Shortages)
}

func TestPrice_RepeatedLinesAreSummedForStock(t *testing.T) {
	lamp := snapshot("Lamp", "10.00", 5)

	_, err := Price([]Line{
		{ProductID: lamp.ID, Quantity: 3},
		{ProductID: lamp.ID, Quantity: 3},
	}, map[string]ProductSnapshot{lamp.ID: lamp})

	var se *apperr.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Shortages[0].Requested)
}

func TestPrice_SnapshotsPrice(t *testing.T) {
	lamp := snapshot("Lamp", "10.00", 5)
	products := map[string]ProductSnapshot{lamp.ID: lamp}

	items, err := Price([]Line{{ProductID: lamp.ID, Quantity: 3}}, products)
	require.NoError(t, err)

	lamp.Price = money.MustParse("12.00")
	products[lamp.ID] = lamp

	require.Len(t, items, 1)
	assert.Equal(t, "10.00", items[0].PriceAtPurchase.String())
	assert.Equal(t, "30.00", Total(items).String())
}

func TestTotal_EqualsRoundedSumOfLines(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(6)
		items := make([]Item, 0, n)
		want := decimal.Zero
		for i := 0; i < n; i++ {
			cents := rng.Int63n(10_000_000)
			price := decimal.New(cents, -2)
			q := 1 + rng.Intn(50)
			items = append(items, Item{ProductID: uuid.NewString(), Quantity: q, PriceAtPurchase: money.FromCents(cents)})
			want = want.Add(price.Mul(decimal.NewFromInt(int64(q))))
		}

		assert.Equal(t, want.Round(2).StringFixed(2), Total(items).String())
	}
}
