package kb

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/resilience"
)

// writePolicy retries catalogue writes that lose the lock race to a
// concurrent analysis.
var writePolicy = resilience.Policy{
	Attempts:  5,
	Retryable: func(err error) bool { return eris.Is(err, ErrLocked) || resilience.IsTransient(err) },
}

// RecordWithRetry is Record wrapped in the lock-contention retry policy.
func (k *KB) RecordWithRetry(ctx context.Context, a *model.Analysis) error {
	return resilience.Do(ctx, writePolicy, "kb.record", func(context.Context) error {
		return k.Record(a)
	})
}
