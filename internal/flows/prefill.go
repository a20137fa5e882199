package flows

import (
	"strings"

	"insurance-desk/internal/engine"
)

// Prefill maps an existing customer record onto the starting draft of flow.
// A customer flow edits the record itself; policy and claim flows copy the
// proposer or insured details and reference the customer by id.
func Prefill(flow *engine.Flow, customer engine.Record) engine.Record {
	if flow.RecordType == customer.RecordType {
		return customer
	}

	f := customer.Fields
	name := displayName(customer)
	out := engine.Record{RecordType: flow.RecordType, Variant: flow.DefaultVariant, Fields: map[string]interface{}{}}

	switch flow.Name {
	case "policy":
		out.Fields["customerId"] = customer.ID
		setIf(out.Fields, "proposerName", name)
		copyIf(out.Fields, "email", f, "email")
		copyIf(out.Fields, "phone", f, "phone")
		copyIf(out.Fields, "dateOfBirth", f, "dateOfBirth")
		copyIf(out.Fields, "agentCode", f, "agentCode")
	case "claim":
		setIf(out.Fields, "insuredName", name)
		setIf(out.Fields, "intimatedBy", name)
		copyIf(out.Fields, "contactPhone", f, "phone")
		copyIf(out.Fields, "contactEmail", f, "email")
	}
	return out
}

func displayName(rec engine.Record) string {
	if rec.Variant == Corporate {
		s, _ := rec.Fields["companyName"].(string)
		return s
	}
	first, _ := rec.Fields["firstName"].(string)
	last, _ := rec.Fields["lastName"].(string)
	return strings.TrimSpace(first + " " + last)
}

func copyIf(dst map[string]interface{}, to string, src map[string]interface{}, from string) {
	if v, ok := src[from]; ok && v != nil {
		dst[to] = v
	}
}

func setIf(dst map[string]interface{}, key, value string) {
	if value != "" {
		dst[key] = value
	}
}
