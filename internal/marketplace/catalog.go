package marketplace

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// Categories is the fixed list a request's category must come from.
var Categories = []string{
	"Home Services",
	"Construction & Renovation",
	"Professional Services",
	"Technology & IT",
	"Creative & Design",
	"Business Services",
	"Health & Wellness",
	"Education & Training",
	"Transportation",
	"Events & Entertainment",
	"Other",
}

var Subcategories = map[string][]string{
	"Home Services":             {"Plumbing", "Electrical", "HVAC", "Cleaning", "Landscaping", "Pest Control", "Handyman", "Appliance Repair"},
	"Construction & Renovation": {"Kitchen Remodeling", "Bathroom Remodeling", "Roofing", "Flooring", "Painting", "Carpentry", "Masonry"},
	"Professional Services":     {"Legal", "Accounting", "Consulting", "Tax Preparation", "Real Estate", "Insurance"},
	"Technology & IT":           {"Web Development", "Mobile Apps", "IT Support", "Cybersecurity", "Data & Analytics", "Cloud & DevOps"},
	"Creative & Design":         {"Graphic Design", "Logo & Branding", "Photography", "Video Production", "Interior Design", "Writing"},
	"Business Services":         {"Marketing", "Virtual Assistant", "Translation", "Printing", "Recruiting"},
	"Health & Wellness":         {"Personal Training", "Nutrition", "Massage", "Yoga", "Mental Health"},
	"Education & Training":      {"Tutoring", "Language Lessons", "Music Lessons", "Test Prep", "Professional Training"},
	"Transportation":            {"Moving", "Delivery", "Auto Repair", "Chauffeur", "Towing"},
	"Events & Entertainment":    {"Catering", "DJ & Music", "Event Planning", "Decoration", "Photography & Video"},
	"Other":                     {"Miscellaneous"},
}

func IsCategory(category string) bool {
	return lo.Contains(Categories, category)
}

// SubcategoriesOf returns the subcategories of category, or NotFound when the
// category is unknown.
func SubcategoriesOf(category string) ([]string, error) {
	subs, ok := Subcategories[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %q", apperr.ErrNotFound, category)
	}
	return subs, nil
}

func validateCategory(category, subcategory string) error {
	if !IsCategory(category) {
		return fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, category)
	}
	if subcategory != "" && !lo.Contains(Subcategories[category], subcategory) {
		return fmt.Errorf("%w: subcategory %q does not belong to %q", apperr.ErrInvalidInput, subcategory, category)
	}
	return nil
}
