package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

func TestDecide_TransitionTableIsTotal(t *testing.T) {
	allowed := map[[2]Status]Decision{
		{StatusCreated, StatusCompleted}:   {Changed: true},
		{StatusCreated, StatusCancelled}:   {Changed: true, Restitute: true},
		{StatusCancelled, StatusCancelled}: {},
	}
	all := []Status{StatusCreated, StatusCompleted, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				got, err := Decide(from, to)
				want, ok := allowed[[2]Status{from, to}]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, got)
					return
				}
				var te *apperr.InvalidTransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, string(from), te.From)
				assert.Equal(t, string(to), te.To)
			})
		}
	}
}

func TestDecide_NamedRejections(t *testing.T) {
	for _, pair := range [][2]Status{
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusCompleted},
		{StatusCreated, StatusCreated},
		{StatusCancelled, StatusCreated},
		{StatusCompleted, StatusCreated},
	} {
		_, err := Decide(pair[0], pair[1])
		var te *apperr.InvalidTransitionError
		assert.ErrorAs(t, err, &te, "%s -> %s", pair[0], pair[1])
	}
}

func TestCancellable(t *testing.T) {
	assert.NoError(t, Cancellable(StatusCreated))

	var te *apperr.InvalidTransitionError
	assert.ErrorAs(t, Cancellable(StatusCancelled), &te)
	assert.ErrorAs(t, Cancellable(StatusCompleted), &te)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("completed")
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, s)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}
