package listing

import (
	"net/url"
	"strings"
	"testing"
)

func TestInquiryLink(t *testing.T) {
	link := InquiryLink("94771234567", "Ocean View Villa")
	if !strings.HasPrefix(link, "https://wa.me/94771234567?text=") {
		t.Fatalf("unexpected link: %s", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	text := u.Query().Get("text")
	if !strings.Contains(text, "Ocean View Villa") {
		t.Fatalf("message does not mention the listing: %q", text)
	}
}

func TestInquiryLinkEmptyWithoutNumber(t *testing.T) {
	if link := InquiryLink("", "Ocean View Villa"); link != "" {
		t.Fatalf("expected empty link, got %s", link)
	}
	if link := OwnerContactLink(""); link != "" {
		t.Fatalf("expected empty owner link, got %s", link)
	}
}

func TestOwnerContactLink(t *testing.T) {
	link := OwnerContactLink("94771234567")
	if !strings.HasPrefix(link, "https://wa.me/94771234567?text=") {
		t.Fatalf("unexpected link: %s", link)
	}
}
