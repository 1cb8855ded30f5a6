package vcard

import (
	"strings"
	"testing"
)

func TestEncodeFullContact(t *testing.T) {
	contact := Contact{
		Name:     "Alice Zhang",
		Email:    "alice@example.com",
		Phone:    "13800138000",
		Phone2:   "075512345678",
		Company:  "Acme Corp",
		Position: "Engineer",
		Website:  "example.com",
		UID:      "contact-42",
	}
	got := Encode(contact, Options{IncludeUID: true})

	want := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Alice Zhang",
		"N:Alice Zhang;;;;",
		"ORG:Acme Corp",
		"TITLE:Engineer",
		"TEL;TYPE=CELL:13800138000",
		"TEL;TYPE=WORK:075512345678",
		"EMAIL:alice@example.com",
		"URL:https://example.com",
		"UID:contact-42",
		"END:VCARD",
	}, "\r\n") + "\r\n"
	if got != want {
		t.Fatalf("unexpected vcard:\n%q\nwant:\n%q", got, want)
	}
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	got := Encode(Contact{Name: "Bob"}, Options{})
	if strings.Contains(got, "EMAIL") || strings.Contains(got, "TEL") || strings.Contains(got, "ORG") {
		t.Fatalf("empty fields must be omitted:\n%s", got)
	}
	if !strings.Contains(got, "FN:Bob\r\n") {
		t.Fatalf("missing FN line:\n%s", got)
	}
}

func TestEncodeUsesCRLF(t *testing.T) {
	got := Encode(Contact{Name: "Bob"}, Options{})
	if strings.Contains(strings.ReplaceAll(got, "\r\n", ""), "\n") {
		t.Fatalf("all line endings must be CRLF:\n%q", got)
	}
	if !strings.HasSuffix(got, "END:VCARD\r\n") {
		t.Fatalf("missing terminator:\n%q", got)
	}
}

func TestEncodeEscapesSpecialCharacters(t *testing.T) {
	got := Encode(Contact{Name: "Smith; Jones, A\\B"}, Options{})
	if !strings.Contains(got, `FN:Smith\; Jones\, A\\B`) {
		t.Fatalf("special characters not escaped:\n%s", got)
	}
}

func TestEncodePhoneKeptVerbatimByDefault(t *testing.T) {
	got := Encode(Contact{Name: "Bob", Phone: "412345678"}, Options{})
	if !strings.Contains(got, "TEL;TYPE=CELL:412345678\r\n") {
		t.Fatalf("phone must be emitted verbatim without a prefix:\n%s", got)
	}
}

func TestEncodePhonePrefixOption(t *testing.T) {
	opts := Options{PhonePrefix: "0"}
	got := Encode(Contact{Name: "Bob", Phone: "412345678", Phone2: "0755123"}, opts)
	if !strings.Contains(got, "TEL;TYPE=CELL:0412345678") {
		t.Fatalf("prefix should be applied:\n%s", got)
	}
	if !strings.Contains(got, "TEL;TYPE=WORK:0755123") || strings.Contains(got, "00755123") {
		t.Fatalf("prefix must not double up:\n%s", got)
	}
}

func TestEncodeWebsiteScheme(t *testing.T) {
	got := Encode(Contact{Name: "Bob", Website: "http://example.com"}, Options{})
	if !strings.Contains(got, "URL:http://example.com") {
		t.Fatalf("existing scheme must be kept:\n%s", got)
	}
}

func TestEncodeVersionOption(t *testing.T) {
	got := Encode(Contact{Name: "Bob"}, Options{Version: "2.1"})
	if !strings.Contains(got, "VERSION:2.1\r\n") {
		t.Fatalf("version option ignored:\n%s", got)
	}
}

func TestEncodeAddress(t *testing.T) {
	contact := Contact{
		Name:    "Bob",
		Address: "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Zipcode: "62704",
		Country: "USA",
	}
	got := Encode(contact, Options{})
	if !strings.Contains(got, "ADR;TYPE=WORK:;;1 Main St;Springfield;IL;62704;USA\r\n") {
		t.Fatalf("unexpected ADR line:\n%s", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	contact := Contact{
		Name:     "Smith; Jones",
		Email:    "smith@example.com",
		Phone:    "13800138000",
		Phone2:   "075512345678",
		Company:  "Acme, Inc",
		Position: "CTO",
		Website:  "https://example.com",
		Address:  "1 Main St",
		City:     "Springfield",
		State:    "IL",
		Zipcode:  "62704",
		Country:  "USA",
		UID:      "contact-7",
	}
	parsed := Parse(Encode(contact, Options{IncludeUID: true}))
	if parsed != contact {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", parsed, contact)
	}
}

func TestParseToleratesLF(t *testing.T) {
	parsed := Parse("BEGIN:VCARD\nVERSION:3.0\nFN:Bob\nTEL:123\nEND:VCARD")
	if parsed.Name != "Bob" || parsed.Phone != "123" {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}
