package tree

import (
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultThreshold is the flush trigger in bytes, per spec section 4.7.
const DefaultThreshold int64 = 1_000_000

// Options configures a tree on Open, following the teacher's
// field-initialized-struct-options idiom (SSTBuilder{Path, Level}).
type Options struct {
	// Threshold is the memtable byte size above which a Put triggers
	// a flush. Zero means DefaultThreshold.
	Threshold int64 `validate:"gte=0"`

	// Registerer optionally receives the tree's prometheus
	// collectors. Nil means "don't register" -- metrics are still
	// tracked internally, just not exported.
	Registerer prometheus.Registerer `validate:"-"`
}

var validate = validator.New()

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

func (o Options) validateOptions() error {
	return validate.Struct(o)
}
