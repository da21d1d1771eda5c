package status

import "time"

// DimensionConfiguration is a tenant's stored setting for one configurable
// allocation dimension. The implicit TransactionType dimension never has a
// row; it is synthesized first in every ordering at read time.
type DimensionConfiguration struct {
	TenantID  string        `json:"tenant_id"`
	Dimension DimensionType `json:"dimension_type"`
	IsEnabled bool          `json:"is_enabled"`

	// DisplayOrder nil falls back to the dimension's built-in default order.
	DisplayOrder *int      `json:"display_order,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectiveOrder returns the display order used for sorting.
func (c DimensionConfiguration) EffectiveOrder() int {
	if c.DisplayOrder != nil {
		return *c.DisplayOrder
	}
	return c.Dimension.DefaultOrder()
}
