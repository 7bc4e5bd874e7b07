package listing

import (
	"fmt"
	"net/url"
)

const (
	inquiryTemplate      = "Hi! I'm interested in your %s listing on CeylonStay."
	ownerInquiryTemplate = "Hi! I'm interested in listing my property on CeylonStay."
)

// InquiryLink builds the wa.me deep link shown on a listing card, pre-filled
// with a templated message naming the listing. Empty when no host number is
// configured.
func InquiryLink(number, title string) string {
	if number == "" {
		return ""
	}
	message := fmt.Sprintf(inquiryTemplate, title)
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(message)
}

// OwnerContactLink is the "get your property listed" link on the gallery page.
func OwnerContactLink(number string) string {
	if number == "" {
		return ""
	}
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(ownerInquiryTemplate)
}
