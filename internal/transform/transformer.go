package transform

import (
	"go.uber.org/zap"

	"github.com/bened18/crypto-stock-etl/internal/dataset"
)

// Transformer builds typed datasets from raw provider records. It holds no
// state beyond its logger; both transforms are safe for repeated use.
type Transformer struct {
	log *zap.SugaredLogger
}

// New returns a Transformer logging through log. A nil logger is replaced
// with a no-op one.
func New(log *zap.SugaredLogger) *Transformer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Transformer{log: log}
}

// nullFloat, nullInt, and nullTime wrap the coercions into nullable cell
// values: not-ok becomes nil, which the dataset and storage layers treat as
// SQL NULL.
func nullFloat(v any) any {
	if f, ok := ToFloat(v); ok {
		return f
	}
	return nil
}

func nullInt(v any) any {
	if n, ok := ToInt(v); ok {
		return n
	}
	return nil
}

func nullTime(v any) any {
	if ts, ok := ToTime(v); ok {
		return ts
	}
	return nil
}

func nullRatio(num, den any) any {
	if r, ok := Ratio(num, den); ok {
		return r
	}
	return nil
}

// nullString keeps strings as-is, renders other non-nil scalars, and maps
// nil to nil.
func nullString(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	default:
		return dataset.Render(x)
	}
}
