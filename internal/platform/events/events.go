// Package events is the wire schema shared by both services, exactly
// as specified in spec.md §3/§6. Both payloads are JSON UTF-8 and
// carry order_id/version at the top level, which the consumer pipeline
// relies on to compute event_key generically.
package events

const (
	OrderCreatedType   = "order.created"
	OrderProcessedType = "order.processed"
)

type Item struct {
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type OrderCreated struct {
	OrderID    string  `json:"order_id"`
	CustomerID string  `json:"customer_id"`
	Items      []Item  `json:"items"`
	Amount     float64 `json:"amount"`
	Version    int     `json:"version"`
}

type OrderProcessed struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	FailReason *string `json:"fail_reason"`
	Version    int     `json:"version"`
}
