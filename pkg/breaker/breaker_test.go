package breaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/dmehra2102/storefront/pkg/logging"
)

func TestNew_TripsAfterRepeatedFailures(t *testing.T) {
	cb := New("test", logging.Discard())
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNew_StaysClosedOnSuccess(t *testing.T) {
	cb := New("test", logging.Discard())

	for i := 0; i < 10; i++ {
		v, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
		assert.NoError(t, err)
		assert.Equal(t, "ok", v)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
