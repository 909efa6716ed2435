package pricing

// Markup converts a spot price into the retail price paid per kWh.
type Markup struct {
	Factor    float64 `json:"factor"`
	Surcharge float64 `json:"surcharge"`
}

// DefaultMarkup is 25% VAT plus grid fee and energy tax.
var DefaultMarkup = Markup{Factor: 1.25, Surcharge: 0.39}

// Apply returns price*Factor + Surcharge. A zero factor is treated as 1.
func (m Markup) Apply(price float64) float64 {
	f := m.Factor
	if f == 0 {
		f = 1
	}
	return price*f + m.Surcharge
}
