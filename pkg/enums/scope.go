package enums

import (
	"fmt"
	"sort"
)

// Scope is a single named permission. The set is closed: roles may only
// carry values listed in scopeLabels.
type Scope string

const (
	ScopeSuperAdmin Scope = "SUPER_ADMIN"

	ScopeInventoryRead  Scope = "INVENTORY_READ"
	ScopeInventoryWrite Scope = "INVENTORY_WRITE"
	ScopeMenuRead       Scope = "MENU_READ"
	ScopeMenuWrite      Scope = "MENU_WRITE"

	ScopeAppointmentsRead  Scope = "APPOINTMENTS_READ"
	ScopeAppointmentsWrite Scope = "APPOINTMENTS_WRITE"
	ScopePaymentsRead      Scope = "PAYMENTS_READ"
	ScopePaymentsWrite     Scope = "PAYMENTS_WRITE"
	ScopeTaxesRead         Scope = "TAXES_READ"
	ScopeTaxesWrite        Scope = "TAXES_WRITE"
	ScopeDiscountsRead     Scope = "DISCOUNTS_READ"
	ScopeDiscountsWrite    Scope = "DISCOUNTS_WRITE"
	ScopeGiftCardsRead     Scope = "GIFT_CARDS_READ"
	ScopeGiftCardsWrite    Scope = "GIFT_CARDS_WRITE"

	ScopeUsersRead  Scope = "USERS_READ"
	ScopeUsersWrite Scope = "USERS_WRITE"
	ScopeRolesRead  Scope = "ROLES_READ"
	ScopeRolesWrite Scope = "ROLES_WRITE"
	ScopeAuditRead  Scope = "AUDIT_READ"
)

var scopeLabels = map[Scope]string{
	ScopeSuperAdmin:        "Super administrator",
	ScopeInventoryRead:     "View inventory",
	ScopeInventoryWrite:    "Manage inventory",
	ScopeMenuRead:          "View menu",
	ScopeMenuWrite:         "Manage menu",
	ScopeAppointmentsRead:  "View appointments",
	ScopeAppointmentsWrite: "Manage appointments",
	ScopePaymentsRead:      "View payments",
	ScopePaymentsWrite:     "Manage payments",
	ScopeTaxesRead:         "View taxes",
	ScopeTaxesWrite:        "Manage taxes",
	ScopeDiscountsRead:     "View discounts",
	ScopeDiscountsWrite:    "Manage discounts",
	ScopeGiftCardsRead:     "View gift cards",
	ScopeGiftCardsWrite:    "Manage gift cards",
	ScopeUsersRead:         "View staff",
	ScopeUsersWrite:        "Manage staff",
	ScopeRolesRead:         "View roles",
	ScopeRolesWrite:        "Manage roles",
	ScopeAuditRead:         "View audit log",
}

// IsValid reports whether the value is a known scope.
func (s Scope) IsValid() bool {
	_, ok := scopeLabels[s]
	return ok
}

// Label returns the human readable name shown in role editors.
func (s Scope) Label() string {
	return scopeLabels[s]
}

func (s Scope) String() string {
	return string(s)
}

// ParseScope converts the raw string to Scope.
func ParseScope(value string) (Scope, error) {
	s := Scope(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid scope %q", value)
	}
	return s, nil
}

// ParseScopes converts every value, returning the unknown ones on failure.
func ParseScopes(values []string) ([]Scope, []string) {
	out := make([]Scope, 0, len(values))
	var invalid []string
	for _, v := range values {
		s, err := ParseScope(v)
		if err != nil {
			invalid = append(invalid, v)
			continue
		}
		out = append(out, s)
	}
	return out, invalid
}

// AllScopes returns every known scope in lexical order.
func AllScopes() []Scope {
	out := make([]Scope, 0, len(scopeLabels))
	for s := range scopeLabels {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
