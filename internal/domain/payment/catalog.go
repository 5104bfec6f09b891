package payment

// Package is a purchasable bundle of credits.
type Package struct {
	Item        string `json:"item"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	AmountCents int    `json:"amount_cents"`
}

var catalog = []Package{
	{Item: "starter", Name: "Starter Pack", Credits: 50, AmountCents: 499},
	{Item: "standard", Name: "Standard Pack", Credits: 250, AmountCents: 1999},
	{Item: "pro", Name: "Pro Pack", Credits: 600, AmountCents: 3999},
}

// Packages returns the catalog in display order.
func Packages() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

// LookupPackage finds a package by item id.
func LookupPackage(item string) (Package, bool) {
	for _, p := range catalog {
		if p.Item == item {
			return p, true
		}
	}
	return Package{}, false
}
