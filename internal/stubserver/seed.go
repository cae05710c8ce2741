package stubserver

import (
	"fmt"

	"github.com/homepoint/crm-notify/internal/domain"
)

// ─── CRM message builders ────────────────────────────────────────────────────

const (
	customerAssignedBody = "Customer '%s' has been assigned to you."
	customerRequestBody  = "Customer '%s' requested a viewing of '%s'."
	propertyListedBody   = "Property '%s' is now listed at %s."
	propertyPriceCutBody = "Price reduced on '%s': now %s."
	contractSignedBody   = "Contract signed for '%s'. Congratulations!"
	paymentOverdueBody   = "Commission payment for '%s' is overdue."
)

func customerAssigned(name string) (domain.Category, string) {
	return domain.CategoryInfo, fmt.Sprintf(customerAssignedBody, name)
}

func customerRequest(name, property string) (domain.Category, string) {
	return domain.CategoryInfo, fmt.Sprintf(customerRequestBody, name, property)
}

func propertyListed(property, price string) (domain.Category, string) {
	return domain.CategorySuccess, fmt.Sprintf(propertyListedBody, property, price)
}

func propertyPriceCut(property, price string) (domain.Category, string) {
	return domain.CategoryWarning, fmt.Sprintf(propertyPriceCutBody, property, price)
}

func contractSigned(property string) (domain.Category, string) {
	return domain.CategorySuccess, fmt.Sprintf(contractSignedBody, property)
}

func paymentOverdue(property string) (domain.Category, string) {
	return domain.CategoryError, fmt.Sprintf(paymentOverdueBody, property)
}

// Seed fills the state with a handful of records for receiver 1 so a
// freshly started harness has something to list.
func Seed(state *State) {
	type entry struct {
		category domain.Category
		content  string
		url      string
		read     bool
	}

	var entries []entry
	add := func(url string, read bool, category domain.Category, content string) {
		entries = append(entries, entry{category, content, url, read})
	}

	cat, body := customerAssigned("Dana Whitfield")
	add("/customers/412", false, cat, body)
	cat, body = customerRequest("Miguel Torres", "14 Birchwood Lane")
	add("/properties/88", false, cat, body)
	cat, body = propertyListed("Unit 7B, Harbor View", "$489,000")
	add("/properties/91", true, cat, body)
	cat, body = propertyPriceCut("14 Birchwood Lane", "$615,000")
	add("/properties/88", false, cat, body)
	cat, body = contractSigned("Unit 3A, Maple Court")
	add("/properties/75", true, cat, body)
	cat, body = paymentOverdue("Unit 3A, Maple Court")
	add("/billing/75", false, cat, body)

	for _, e := range entries {
		rec := state.Insert(1, e.category, e.content, e.url)
		if e.read {
			state.SetRead(1, []int64{rec.ID}, false, true)
		}
	}
}
