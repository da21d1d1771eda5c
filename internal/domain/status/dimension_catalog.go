package status

// DimensionType is one cost-allocation dimension a tenant can enable.
type DimensionType string

const (
	// DimensionTransactionType is always visible, always first, and never
	// stored or configured. It is synthesized at read time.
	DimensionTransactionType DimensionType = "TRANSACTION_TYPE"

	DimensionEmployees DimensionType = "EMPLOYEES"
	DimensionLocation  DimensionType = "LOCATION"
	DimensionProject   DimensionType = "PROJECT"
	DimensionCostType  DimensionType = "COST_TYPE"
	DimensionVehicle   DimensionType = "VEHICLE"
	DimensionContract  DimensionType = "CONTRACT"
)

// defaultDimensionOrder is used for enabled dimensions without an explicit
// display order.
var defaultDimensionOrder = map[DimensionType]int{
	DimensionEmployees: 10,
	DimensionLocation:  20,
	DimensionProject:   30,
	DimensionCostType:  40,
	DimensionVehicle:   50,
	DimensionContract:  60,
}

// String returns the string representation of the dimension type
func (d DimensionType) String() string { return string(d) }

// IsValid returns true for any configurable dimension or the implicit one
func (d DimensionType) IsValid() bool {
	if d == DimensionTransactionType {
		return true
	}
	_, ok := defaultDimensionOrder[d]
	return ok
}

// IsConfigurable returns false for the implicit always-visible dimension
func (d DimensionType) IsConfigurable() bool {
	return d != DimensionTransactionType && d.IsValid()
}

// DefaultOrder returns the built-in display order for a dimension type.
func (d DimensionType) DefaultOrder() int {
	return defaultDimensionOrder[d]
}
