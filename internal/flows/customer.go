package flows

import "insurance-desk/internal/engine"

const (
	Individual engine.Variant = "INDIVIDUAL"
	Corporate  engine.Variant = "CORPORATE"
)

// Customer onboards a retail or corporate customer: details, then confirmation.
var Customer = &engine.Flow{
	Name:           "customer",
	RecordType:     "customer",
	Variants:       []engine.Variant{Individual, Corporate},
	DefaultVariant: Individual,
	Fields: []engine.Field{
		{Name: "firstName", Label: "First name", Kind: engine.KindString, Rule: "max=60", Required: true, Variants: []engine.Variant{Individual}},
		{Name: "lastName", Label: "Last name", Kind: engine.KindString, Rule: "max=60", Required: true, Variants: []engine.Variant{Individual}},
		{Name: "dateOfBirth", Label: "Date of birth", Kind: engine.KindDate, Rule: "notfuture", Variants: []engine.Variant{Individual}},
		{Name: "panNumber", Label: "PAN", Kind: engine.KindString, Rule: "pan"},
		{Name: "companyName", Label: "Company name", Kind: engine.KindString, Rule: "max=120", Required: true, Variants: []engine.Variant{Corporate}},
		{Name: "contactPersonName", Label: "Contact person", Kind: engine.KindString, Rule: "max=120", Required: true, Variants: []engine.Variant{Corporate}},
		{Name: "registrationNumber", Label: "Registration number", Kind: engine.KindString, Rule: "alphanum,min=6,max=21", Required: true, Variants: []engine.Variant{Corporate}},
		{Name: "gstin", Label: "GSTIN", Kind: engine.KindString, Rule: "gstin", Variants: []engine.Variant{Corporate}},
		{Name: "email", Label: "Email", Kind: engine.KindString, Rule: "email", Required: true},
		{Name: "phone", Label: "Mobile", Kind: engine.KindString, Rule: "len=10,numeric"},
		{Name: "address", Label: "Address", Kind: engine.KindString, Rule: "max=250"},
		{Name: "state", Label: "State", Kind: engine.KindString, OptionsFrom: "states"},
		{Name: "city", Label: "City", Kind: engine.KindString, OptionsFrom: "cities-for-state:{state}"},
		{Name: "pincode", Label: "Pincode", Kind: engine.KindString, Rule: "len=6,numeric"},
		{Name: "agentCode", Label: "Servicing agent", Kind: engine.KindString, OptionsFrom: "agents"},
	},
	Steps: []engine.Step{
		{
			ID:    "info",
			Title: "Customer details",
			Fields: []string{
				"firstName", "lastName", "dateOfBirth",
				"companyName", "contactPersonName", "registrationNumber", "gstin",
				"panNumber", "email", "phone", "address", "state", "city", "pincode", "agentCode",
			},
		},
		{ID: "confirm", Title: "Confirm"},
	},
}
