package flows

import "insurance-desk/internal/engine"

const (
	Health engine.Variant = "HEALTH"
	Motor  engine.Variant = "MOTOR"
	Life   engine.Variant = "LIFE"
	Fire   engine.Variant = "FIRE"
)

var products = []engine.Variant{Health, Motor, Life, Fire}

// Policy issues a new policy application. Product-specific steps are shown
// only for their product.
var Policy = &engine.Flow{
	Name:           "policy",
	RecordType:     "policy-application",
	Variants:       products,
	DefaultVariant: Health,
	Fields: []engine.Field{
		// proposer
		{Name: "customerId", Label: "Existing customer", Kind: engine.KindString},
		{Name: "proposerName", Label: "Proposer name", Kind: engine.KindString, Rule: "max=120", Required: true},
		{Name: "email", Label: "Email", Kind: engine.KindString, Rule: "email", Required: true},
		{Name: "phone", Label: "Mobile", Kind: engine.KindString, Rule: "len=10,numeric", Required: true},
		{Name: "dateOfBirth", Label: "Date of birth", Kind: engine.KindDate, Rule: "notfuture", Variants: []engine.Variant{Health, Life}, Required: true},
		{Name: "agentCode", Label: "Agent", Kind: engine.KindString, OptionsFrom: "agents"},

		// coverage
		{Name: "insurer", Label: "Insurer", Kind: engine.KindString, OptionsFrom: "insurers", Required: true},
		{Name: "planName", Label: "Plan", Kind: engine.KindString, Required: true},
		{Name: "sumInsured", Label: "Sum insured", Kind: engine.KindNumber, Rule: "gt=0", Required: true},
		{Name: "annualPremium", Label: "Annual premium", Kind: engine.KindNumber, Rule: "gt=0", Required: true},
		{Name: "paymentMode", Label: "Payment mode", Kind: engine.KindChoice, Options: []string{"ANNUAL", "HALF_YEARLY", "QUARTERLY", "MONTHLY"}, Required: true},
		{Name: "startDate", Label: "Start date", Kind: engine.KindDate, Required: true},
		{Name: "endDate", Label: "End date", Kind: engine.KindDate, Required: true},

		// HEALTH
		{Name: "coverType", Label: "Cover type", Kind: engine.KindChoice, Options: []string{"INDIVIDUAL", "FAMILY_FLOATER"}, Variants: []engine.Variant{Health}, Required: true},
		{Name: "membersCovered", Label: "Members covered", Kind: engine.KindNumber, Rule: "gte=1,lte=8", Variants: []engine.Variant{Health}, Required: true},
		{Name: "preExistingDisease", Label: "Pre-existing disease", Kind: engine.KindBool, Variants: []engine.Variant{Health}, Required: true},
		{Name: "diseaseDetails", Label: "Disease details", Kind: engine.KindString, Rule: "max=500", Variants: []engine.Variant{Health}},
		{Name: "heightCm", Label: "Height (cm)", Kind: engine.KindNumber, Rule: "gte=30,lte=250", Variants: []engine.Variant{Health}},
		{Name: "weightKg", Label: "Weight (kg)", Kind: engine.KindNumber, Rule: "gte=2,lte=300", Variants: []engine.Variant{Health}},

		// MOTOR
		{Name: "vehicleRegistrationNumber", Label: "Registration number", Kind: engine.KindString, Rule: "vehiclereg", Variants: []engine.Variant{Motor}, Required: true},
		{Name: "vehicleType", Label: "Vehicle type", Kind: engine.KindChoice, Options: []string{"TWO_WHEELER", "PRIVATE_CAR", "COMMERCIAL"}, Variants: []engine.Variant{Motor}, Required: true},
		{Name: "make", Label: "Make", Kind: engine.KindString, Variants: []engine.Variant{Motor}, Required: true},
		{Name: "model", Label: "Model", Kind: engine.KindString, Variants: []engine.Variant{Motor}, Required: true},
		{Name: "manufactureYear", Label: "Year of manufacture", Kind: engine.KindNumber, Rule: "gte=1950,lte=2100", Variants: []engine.Variant{Motor}, Required: true},
		{Name: "engineNumber", Label: "Engine number", Kind: engine.KindString, Rule: "alphanum", Variants: []engine.Variant{Motor}},
		{Name: "chassisNumber", Label: "Chassis number", Kind: engine.KindString, Rule: "alphanum,len=17", Variants: []engine.Variant{Motor}},
		{Name: "previousInsurer", Label: "Previous insurer", Kind: engine.KindString, OptionsFrom: "insurers", Variants: []engine.Variant{Motor}},
		{Name: "noClaimBonus", Label: "No claim bonus (%)", Kind: engine.KindNumber, Rule: "gte=0,lte=50", Variants: []engine.Variant{Motor}},

		// LIFE
		{Name: "smoker", Label: "Smoker", Kind: engine.KindBool, Variants: []engine.Variant{Life}, Required: true},
		{Name: "annualIncome", Label: "Annual income", Kind: engine.KindNumber, Rule: "gt=0", Variants: []engine.Variant{Life}, Required: true},
		{Name: "nomineeName", Label: "Nominee", Kind: engine.KindString, Variants: []engine.Variant{Life}, Required: true},
		{Name: "nomineeRelation", Label: "Relation", Kind: engine.KindString, OptionsFrom: "relations", Variants: []engine.Variant{Life}, Required: true},
		{Name: "nomineeDateOfBirth", Label: "Nominee date of birth", Kind: engine.KindDate, Rule: "notfuture", Variants: []engine.Variant{Life}},

		// FIRE
		{Name: "propertyAddress", Label: "Property address", Kind: engine.KindString, Rule: "max=250", Variants: []engine.Variant{Fire}, Required: true},
		{Name: "propertyPincode", Label: "Property pincode", Kind: engine.KindString, Rule: "len=6,numeric", Variants: []engine.Variant{Fire}, Required: true},
		{Name: "occupancy", Label: "Occupancy", Kind: engine.KindChoice, Options: []string{"RESIDENTIAL", "SHOP", "OFFICE", "WAREHOUSE", "FACTORY"}, Variants: []engine.Variant{Fire}, Required: true},
		{Name: "constructionType", Label: "Construction", Kind: engine.KindChoice, Options: []string{"PUCCA", "KUTCHA"}, Variants: []engine.Variant{Fire}, Required: true},
		{Name: "buildingValue", Label: "Building value", Kind: engine.KindNumber, Rule: "gte=0", Variants: []engine.Variant{Fire}, Required: true},
		{Name: "contentsValue", Label: "Contents value", Kind: engine.KindNumber, Rule: "gte=0", Variants: []engine.Variant{Fire}},

		// review
		{Name: "declarationAccepted", Label: "I confirm the details are true", Kind: engine.KindBool, Rule: "eq=true", Required: true},
	},
	Steps: []engine.Step{
		{ID: "proposer", Title: "Proposer", Fields: []string{"customerId", "proposerName", "email", "phone", "dateOfBirth", "agentCode"}},
		{ID: "coverage", Title: "Coverage", Fields: []string{"insurer", "planName", "sumInsured", "annualPremium", "paymentMode", "startDate", "endDate"}},
		{ID: "medical-history", Title: "Medical history", Variants: []engine.Variant{Health}, Fields: []string{"coverType", "membersCovered", "preExistingDisease", "diseaseDetails", "heightCm", "weightKg"}},
		{ID: "vehicle", Title: "Vehicle", Variants: []engine.Variant{Motor}, Fields: []string{"vehicleRegistrationNumber", "vehicleType", "make", "model", "manufactureYear", "engineNumber", "chassisNumber", "previousInsurer", "noClaimBonus"}},
		{ID: "nominee", Title: "Life assured and nominee", Variants: []engine.Variant{Life}, Fields: []string{"smoker", "annualIncome", "nomineeName", "nomineeRelation", "nomineeDateOfBirth"}},
		{ID: "property", Title: "Property", Variants: []engine.Variant{Fire}, Fields: []string{"propertyAddress", "propertyPincode", "occupancy", "constructionType", "buildingValue", "contentsValue"}},
		{ID: "review", Title: "Review", Fields: []string{"declarationAccepted"}},
	},
	Rules: []engine.Rule{
		{Name: "policy-period", Message: "must not be before the start date", Fields: []string{"endDate", "startDate"}, Check: notBefore("endDate", "startDate")},
		{Name: "premium-within-cover", Message: "must not be below the annual premium", Fields: []string{"sumInsured", "annualPremium"}, Variants: []engine.Variant{Life}, Check: atLeast("sumInsured", "annualPremium")},
	},
}
