package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraftInquiry(t *testing.T) {
	subject, message := DraftInquiry(nil)
	assert.Equal(t, "Product Information Request", subject)
	assert.True(t, strings.HasPrefix(message, "I am interested in learning more"))

	subject, message = DraftInquiry([]string{"Grains", "Oil & Gas"})
	assert.Equal(t, "Inquiry about Grains, Oil & Gas", subject)
	assert.Contains(t, message, "following categories: Grains, Oil & Gas.")
	assert.Contains(t, message, "- Payment conditions")
}

func TestNewInquiry(t *testing.T) {
	options := []string{"Fuel", "Grains", "Oil & Gas"}

	inq := NewInquiry(options, []string{"Grains", " Grains ", "Unknown", ""})
	assert.Equal(t, options, inq.Subcategories)
	assert.Equal(t, []string{"Grains"}, inq.Selected)
	assert.Equal(t, "Inquiry about Grains", inq.Subject)

	inq = NewInquiry(options, nil)
	assert.Empty(t, inq.Selected)
	assert.Equal(t, "Product Information Request", inq.Subject)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("buyer@example.com"))
	assert.True(t, ValidEmail("a.b+c@sub.example.co"))
	assert.False(t, ValidEmail("buyer@example"))
	assert.False(t, ValidEmail("buyer example@example.com"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail(""))
}
