// Package contact builds the site's direct-messaging references.
package contact

import (
	"net/url"
	"strings"
)

const DefaultGreeting = "Hi Além, I'd like to plan a trip"

// Info is the contact block shown in the footer and booking section.
type Info struct {
	Phone       string `json:"phone"`
	WhatsApp    string `json:"whatsapp"`
	WhatsAppURL string `json:"whatsapp_url"`
	Email       string `json:"email"`
	MailtoURL   string `json:"mailto_url"`
}

// Digits strips everything but digits from a phone number.
func Digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// WhatsAppLink returns a wa.me deep link, pre-filled with text when non-empty.
// Spaces are sent as %20; WhatsApp shows a literal '+' otherwise.
func WhatsAppLink(phone, text string) string {
	u := "https://wa.me/" + Digits(phone)
	if text == "" {
		return u
	}
	return u + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// Display formats a Portuguese mobile number as "+351 912 345 678". Other
// numbers are returned as "+<digits>".
func Display(phone string) string {
	d := Digits(phone)
	if len(d) == 12 && strings.HasPrefix(d, "351") {
		return "+351 " + d[3:6] + " " + d[6:9] + " " + d[9:]
	}
	return "+" + d
}

func NewInfo(phone, email string) Info {
	return Info{
		Phone:       Display(phone),
		WhatsApp:    Digits(phone),
		WhatsAppURL: WhatsAppLink(phone, DefaultGreeting),
		Email:       email,
		MailtoURL:   "mailto:" + email,
	}
}
