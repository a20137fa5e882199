package flows

import "insurance-desk/internal/engine"

// Claim records a claim intimation against an existing policy. The variant is
// the product of the policy being claimed on.
var Claim = &engine.Flow{
	Name:           "claim",
	RecordType:     "claim-intimation",
	Variants:       products,
	DefaultVariant: Health,
	Fields: []engine.Field{
		{Name: "policyNumber", Label: "Policy number", Kind: engine.KindString, Rule: "alphanum,min=6,max=30", Required: true},
		{Name: "insurer", Label: "Insurer", Kind: engine.KindString, OptionsFrom: "insurers", Required: true},
		{Name: "insuredName", Label: "Insured name", Kind: engine.KindString, Required: true},
		{Name: "intimatedBy", Label: "Intimated by", Kind: engine.KindString, Required: true},
		{Name: "contactPhone", Label: "Contact mobile", Kind: engine.KindString, Rule: "len=10,numeric", Required: true},
		{Name: "contactEmail", Label: "Contact email", Kind: engine.KindString, Rule: "email"},

		{Name: "lossDate", Label: "Date of loss", Kind: engine.KindDate, Rule: "notfuture", Required: true},
		{Name: "lossLocation", Label: "Place of loss", Kind: engine.KindString, Required: true},
		{Name: "lossDescription", Label: "What happened", Kind: engine.KindString, Rule: "min=10,max=1000", Required: true},
		{Name: "estimatedAmount", Label: "Estimated amount", Kind: engine.KindNumber, Rule: "gt=0", Required: true},

		// HEALTH
		{Name: "claimType", Label: "Claim type", Kind: engine.KindChoice, Options: []string{"CASHLESS", "REIMBURSEMENT"}, Variants: []engine.Variant{Health}, Required: true},
		{Name: "patientName", Label: "Patient", Kind: engine.KindString, Variants: []engine.Variant{Health}, Required: true},
		{Name: "hospitalName", Label: "Hospital", Kind: engine.KindString, Variants: []engine.Variant{Health}, Required: true},
		{Name: "admissionDate", Label: "Admission date", Kind: engine.KindDate, Variants: []engine.Variant{Health}, Required: true},
		{Name: "dischargeDate", Label: "Discharge date", Kind: engine.KindDate, Variants: []engine.Variant{Health}},
		{Name: "diagnosis", Label: "Diagnosis", Kind: engine.KindString, Variants: []engine.Variant{Health}},

		// MOTOR
		{Name: "vehicleRegistrationNumber", Label: "Registration number", Kind: engine.KindString, Rule: "vehiclereg", Variants: []engine.Variant{Motor}, Required: true},
		{Name: "driverName", Label: "Driver", Kind: engine.KindString, Variants: []engine.Variant{Motor}, Required: true},
		{Name: "drivingLicenceNumber", Label: "Driving licence", Kind: engine.KindString, Rule: "alphanum,min=8,max=20", Variants: []engine.Variant{Motor}, Required: true},
		{Name: "thirdPartyInvolved", Label: "Third party involved", Kind: engine.KindBool, Variants: []engine.Variant{Motor}, Required: true},
		{Name: "firNumber", Label: "FIR number", Kind: engine.KindString, Variants: []engine.Variant{Motor}},
		{Name: "garageName", Label: "Garage", Kind: engine.KindString, Variants: []engine.Variant{Motor}},

		// LIFE
		{Name: "dateOfDeath", Label: "Date of death", Kind: engine.KindDate, Rule: "notfuture", Variants: []engine.Variant{Life}, Required: true},
		{Name: "causeOfDeath", Label: "Cause of death", Kind: engine.KindChoice, Options: []string{"NATURAL", "ACCIDENT", "ILLNESS", "OTHER"}, Variants: []engine.Variant{Life}, Required: true},
		{Name: "claimantName", Label: "Claimant", Kind: engine.KindString, Variants: []engine.Variant{Life}, Required: true},
		{Name: "claimantRelation", Label: "Claimant relation", Kind: engine.KindString, OptionsFrom: "relations", Variants: []engine.Variant{Life}, Required: true},

		// FIRE
		{Name: "propertyAddress", Label: "Property address", Kind: engine.KindString, Variants: []engine.Variant{Fire}, Required: true},
		{Name: "fireBrigadeReport", Label: "Fire brigade report filed", Kind: engine.KindBool, Variants: []engine.Variant{Fire}, Required: true},
		{Name: "damagedItems", Label: "Damaged items", Kind: engine.KindString, Rule: "max=1000", Variants: []engine.Variant{Fire}},

		// settlement
		{Name: "payeeName", Label: "Payee", Kind: engine.KindString, Required: true},
		{Name: "bankAccountNumber", Label: "Account number", Kind: engine.KindString, Rule: "numeric,min=9,max=18", Required: true},
		{Name: "ifscCode", Label: "IFSC", Kind: engine.KindString, Rule: "ifsc", Required: true},

		{Name: "declarationAccepted", Label: "I confirm the details are true", Kind: engine.KindBool, Rule: "eq=true", Required: true},
	},
	Steps: []engine.Step{
		{ID: "policy", Title: "Policy", Fields: []string{"policyNumber", "insurer", "insuredName", "intimatedBy", "contactPhone", "contactEmail"}},
		{ID: "incident", Title: "Incident", Fields: []string{"lossDate", "lossLocation", "lossDescription", "estimatedAmount"}},
		{ID: "hospitalisation", Title: "Hospitalisation", Variants: []engine.Variant{Health}, Fields: []string{"claimType", "patientName", "hospitalName", "admissionDate", "dischargeDate", "diagnosis"}},
		{ID: "vehicle", Title: "Vehicle and driver", Variants: []engine.Variant{Motor}, Fields: []string{"vehicleRegistrationNumber", "driverName", "drivingLicenceNumber", "thirdPartyInvolved", "firNumber", "garageName"}},
		{ID: "bereavement", Title: "Death claim", Variants: []engine.Variant{Life}, Fields: []string{"dateOfDeath", "causeOfDeath", "claimantName", "claimantRelation"}},
		{ID: "property", Title: "Property damage", Variants: []engine.Variant{Fire}, Fields: []string{"propertyAddress", "fireBrigadeReport", "damagedItems"}},
		{ID: "settlement", Title: "Settlement", Fields: []string{"payeeName", "bankAccountNumber", "ifscCode"}},
		{ID: "review", Title: "Review", Fields: []string{"declarationAccepted"}},
	},
	Rules: []engine.Rule{
		{Name: "admission-after-loss", Message: "must not be before the date of loss", Fields: []string{"admissionDate", "lossDate"}, Variants: []engine.Variant{Health}, Check: notBefore("admissionDate", "lossDate")},
		{Name: "discharge-after-admission", Message: "must not be before the admission date", Fields: []string{"dischargeDate", "admissionDate"}, Variants: []engine.Variant{Health}, Check: notBefore("dischargeDate", "admissionDate")},
		{Name: "death-on-loss-date", Message: "must not be before the date of loss", Fields: []string{"dateOfDeath", "lossDate"}, Variants: []engine.Variant{Life}, Check: notBefore("dateOfDeath", "lossDate")},
	},
}
