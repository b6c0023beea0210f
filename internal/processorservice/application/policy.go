package application

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/stepangreenberg/order-processor/internal/processorservice/domain"
)

// Policy is spec.md §4.6's deterministic-per-order processing policy,
// injected into the use case so tests can replace it with a stub —
// the use case itself does not depend on its stochastic form.
type Policy interface {
	Evaluate(orderID string, items []Item) (result domain.Status, reason string)
}

type Item struct {
	SKU      string
	Quantity int
	Price    float64
}

// DefaultPolicy is the embargo-then-simulated-outcome policy described
// in spec.md §4.6.
type DefaultPolicy struct {
	EmbargoSKUs []string
	SuccessProb float64
}

func (p DefaultPolicy) Evaluate(orderID string, items []Item) (domain.Status, string) {
	embargo := make(map[string]bool, len(p.EmbargoSKUs))
	for _, sku := range p.EmbargoSKUs {
		embargo[sku] = true
	}

	for _, it := range items {
		if embargo[it.SKU] {
			return domain.StatusFailed, fmt.Sprintf("embargo:%s", it.SKU)
		}
	}

	// seed derived from order_id so outcomes are reproducible in tests
	h := fnv.New64a()
	_, _ = h.Write([]byte(orderID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	if rng.Float64() < p.SuccessProb {
		return domain.StatusSuccess, ""
	}
	return domain.StatusFailed, "processing_error"
}
