package core

import "strings"

// Category is one of the fixed expense categories. The display string is the
// stored value.
type Category string

const (
	Food          Category = "Alimentación"
	Transport     Category = "Transporte"
	Utilities     Category = "Servicios"
	Entertainment Category = "Entretenimiento"
	Health        Category = "Salud"
	Education     Category = "Educación"
	Shopping      Category = "Compras"
	Housing       Category = "Vivienda"
	Other         Category = "Otros"

	// AllCategories is the list filter that matches every category. It is
	// never stored on a record.
	AllCategories Category = "Todas"
)

var categories = []Category{
	Food, Transport, Utilities, Entertainment, Health, Education, Shopping, Housing, Other,
}

// Categories returns the fixed categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) String() string { return string(c) }

// IsValid reports whether c is a storable category.
func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Matches reports whether a record in category other passes the filter c.
func (c Category) Matches(other Category) bool {
	return c == AllCategories || c == "" || c == other
}

// ParseCategory resolves user input case-insensitively. The filter value
// "Todas" is accepted and returned as AllCategories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(AllCategories)) {
		return AllCategories, nil
	}
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", invalid("category", ErrInvalidCategory)
}
