package models

// VINDetails is what a decoder could learn about a vehicle from its VIN.
type VINDetails struct {
	VIN          string `json:"vin"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	Trim         string `json:"trim,omitempty"`
	BodyStyle    string `json:"bodyStyle,omitempty"`
	Engine       string `json:"engine,omitempty"`
	Country      string `json:"country,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Source       string `json:"source,omitempty"`
}

// Complete reports whether make, model and year are all known.
func (d *VINDetails) Complete() bool {
	return d.Make != "" && d.Model != "" && d.Year > 0
}
