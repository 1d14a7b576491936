package application

import "time"

type Options struct {
	CompensationAttempts int
	CompensationBackoff  time.Duration
	AllowDefaultQuantity bool
}

func (o Options) withDefaults() Options {
	if o.CompensationAttempts < 1 {
		o.CompensationAttempts = 3
	}
	if o.CompensationBackoff <= 0 {
		o.CompensationBackoff = 50 * time.Millisecond
	}
	return o
}
