package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
)

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []domain.Item
		wantErr bool
	}{
		{"empty items", nil, true},
		{"blank sku", []domain.Item{{SKU: "  ", Quantity: 1, Price: 1}}, true},
		{"zero quantity", []domain.Item{{SKU: "widget", Quantity: 0, Price: 1}}, true},
		{"negative price", []domain.Item{{SKU: "widget", Quantity: 1, Price: -1}}, true},
		{"valid", []domain.Item{{SKU: "widget", Quantity: 2, Price: 3.5}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateItems(tt.items)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewOrderComputesTotal(t *testing.T) {
	o := domain.NewOrder("order-1", "cust-1", []domain.Item{
		{SKU: "a", Quantity: 2, Price: 3},
		{SKU: "b", Quantity: 1, Price: 4.5},
	})

	assert.Equal(t, 10.5, o.Total)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, 0, o.Version)
}

func TestApplyProcessed_VersionGate(t *testing.T) {
	o := domain.NewOrder("order-1", "cust-1", []domain.Item{{SKU: "a", Quantity: 1, Price: 1}})

	applied := o.ApplyProcessed("success", "", 1)
	require.True(t, applied)
	assert.Equal(t, domain.StatusDone, o.Status)
	assert.Equal(t, 1, o.Version)

	// a stale update that does not exceed the stored version is ignored
	applied = o.ApplyProcessed("failed", "embargo:x", 1)
	require.False(t, applied)
	assert.Equal(t, domain.StatusDone, o.Status)
	assert.Equal(t, 1, o.Version)

	// a newer failed version wins
	applied = o.ApplyProcessed("failed", "embargo:x", 2)
	require.True(t, applied)
	assert.Equal(t, domain.StatusFailed, o.Status)
	assert.Equal(t, "embargo:x", o.FailReason)
	assert.Equal(t, 2, o.Version)
}

func TestApplyProcessed_SuccessClearsFailReason(t *testing.T) {
	o := domain.NewOrder("order-1", "cust-1", []domain.Item{{SKU: "a", Quantity: 1, Price: 1}})
	o.ApplyProcessed("failed", "processing_error", 1)
	require.Equal(t, "processing_error", o.FailReason)

	o.ApplyProcessed("success", "", 2)
	assert.Equal(t, domain.StatusDone, o.Status)
	assert.Empty(t, o.FailReason)
}
