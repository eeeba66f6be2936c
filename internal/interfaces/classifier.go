package interfaces

import "context"

// Classifier answers whether an article implies the symbol will rise in the
// next trading window. The response is free text; callers normalize it.
type Classifier interface {
	Classify(ctx context.Context, symbol, article string) (string, error)
}
