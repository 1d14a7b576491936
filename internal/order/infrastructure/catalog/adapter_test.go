package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catdomain "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/money"
)

type stubProducts struct {
	found []catdomain.Product
	err   error
	calls []string
}

func (s *stubProducts) FindByIDs(context.Context, []string) ([]catdomain.Product, error) {
	return s.found, s.err
}

func (s *stubProducts) DecrementIfAvailable(_ context.Context, id string, qty int) (bool, int, error) {
	s.calls = append(s.calls, "dec:"+id)
	return qty <= 3, 3, nil
}

func (s *stubProducts) Increment(_ context.Context, id string, _ int) error {
	s.calls = append(s.calls, "inc:"+id)
	return nil
}

func TestAdapter_FindByIDsKeysSnapshotsByID(t *testing.T) {
	stub := &stubProducts{found: []catdomain.Product{
		{ID: "a", Name: "Lamp", Price: money.MustParse("30"), Stock: 3, Active: true},
		{ID: "b", Name: "Rug", Price: money.MustParse("12.5"), Stock: 0, Active: false},
	}}

	got, err := NewAdapter(stub).FindByIDs(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lamp", got["a"].Name)
	assert.Equal(t, int64(3000), got["a"].Price.Cents())
	assert.False(t, got["b"].Active)
	_, ok := got["c"]
	assert.False(t, ok)
}

func TestAdapter_PropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewAdapter(&stubProducts{err: boom}).FindByIDs(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_DelegatesStockChanges(t *testing.T) {
	stub := &stubProducts{}
	a := NewAdapter(stub)

	ok, available, err := a.DecrementIfAvailable(context.Background(), "a", 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, available)
	require.NoError(t, a.Increment(context.Background(), "a", 1))
	assert.Equal(t, []string{"dec:a", "inc:a"}, stub.calls)
}
