package model

type CreateSessionRequest struct {
	Variant    string `json:"variant,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

type VariantRequest struct {
	Variant string `json:"variant"`
}

// FieldRequest carries a single form value. JSON numbers decode to float64.
type FieldRequest struct {
	Value interface{} `json:"value"`
}

type JumpRequest struct {
	Step int `json:"step"`
}

type PreferenceRequest struct {
	Value string `json:"value"`
}
