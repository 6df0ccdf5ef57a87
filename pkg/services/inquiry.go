package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"export-site/pkg/models"
)

// ContactAddress receives the inquiries sent from the contact page
const ContactAddress = "export@qualiden.com.br"

const (
	genericSubject = "Product Information Request"
	genericMessage = "I am interested in learning more about your products and services. " +
		"Could you please provide me with detailed information about your offerings?"
	categoryMessage = "I am interested in the following categories: %s.\n\n" +
		"Please provide details on:\n" +
		"- Product specifications and pricing\n" +
		"- Available quantities and minimum orders\n" +
		"- Delivery terms and timeframes\n" +
		"- Payment conditions\n\n" +
		"Looking forward to your response."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DraftInquiry returns the pre-filled subject and message for the selected
// subcategories
func DraftInquiry(selected []string) (subject, message string) {
	if len(selected) == 0 {
		return genericSubject, genericMessage
	}
	list := strings.Join(selected, ", ")
	return "Inquiry about " + list, fmt.Sprintf(categoryMessage, list)
}

// NewInquiry builds the contact page model. Requested subcategories that
// are not among the options are dropped, and duplicates are kept once.
func NewInquiry(options, requested []string) models.Inquiry {
	var selected []string
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(selected, name) {
			continue
		}
		if len(options) > 0 && !slices.Contains(options, name) {
			continue
		}
		selected = append(selected, name)
	}

	subject, message := DraftInquiry(selected)
	return models.Inquiry{
		Address:       ContactAddress,
		Subcategories: options,
		Selected:      selected,
		Subject:       subject,
		Message:       message,
	}
}

// ValidEmail applies the same loose check as the contact form
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
