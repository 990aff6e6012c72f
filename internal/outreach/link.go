// Package outreach builds WhatsApp deep links.
package outreach

import (
	"net/url"
	"strings"

	"github.com/crm-whatsapp/crm-service/internal/filter"
)

const (
	DefaultBaseURL     = "https://web.whatsapp.com/send"
	DefaultCountryCode = "55"
)

// LinkBuilder renders deep links for a fixed provider endpoint and country code.
type LinkBuilder struct {
	baseURL     string
	countryCode string
}

// NewLinkBuilder returns a builder, falling back to the WhatsApp Web defaults for empty values.
func NewLinkBuilder(baseURL, countryCode string) *LinkBuilder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &LinkBuilder{baseURL: baseURL, countryCode: filter.Digits(countryCode)}
}

// Build strips every non-digit from phone and percent-encodes message.
// The number is not validated; the provider rejects malformed ones.
func (b *LinkBuilder) Build(phone, message string) string {
	return b.baseURL + "?phone=" + b.countryCode + filter.Digits(phone) + "&text=" + escape(message)
}

// BuildLink uses the default WhatsApp Web endpoint and the Brazilian country code.
func BuildLink(phone, message string) string {
	return NewLinkBuilder("", "").Build(phone, message)
}

// escape percent-encodes like a query component but writes spaces as %20,
// which WhatsApp keeps verbatim in the pre-filled text.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
