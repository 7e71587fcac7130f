package models

// Category is one of the canonical maintenance categories. Its value is the
// display name shown in the UI.
type Category string

const (
	CategoryOilChange      Category = "Oil Change"
	CategoryTireRotation   Category = "Tire Rotation"
	CategoryBrakeService   Category = "Brake Service"
	CategoryAirFilter      Category = "Air Filter"
	CategoryBatteryService Category = "Battery Service"
	CategoryFluidCheck     Category = "Fluid Check"
	CategoryInspection     Category = "Inspection"
	CategoryEngine         Category = "Engine"
	CategoryTransmission   Category = "Transmission"
	CategoryElectrical     Category = "Electrical"
	CategoryOther          Category = "Other"
)

// CanonicalCategories lists every category in matching order.
var CanonicalCategories = []Category{
	CategoryOilChange,
	CategoryTireRotation,
	CategoryBrakeService,
	CategoryAirFilter,
	CategoryBatteryService,
	CategoryFluidCheck,
	CategoryInspection,
	CategoryEngine,
	CategoryTransmission,
	CategoryElectrical,
	CategoryOther,
}

// DisplayName returns the human readable name of the category.
func (c Category) DisplayName() string {
	return string(c)
}
