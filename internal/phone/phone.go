// Package phone contém utilitários de telefone usados na listagem de leads.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion é usada quando o contato não traz código de país
const DefaultRegion = "IN"

const whatsAppBaseURL = "https://wa.me/"

// DigitsOnly remove tudo que não for dígito 0-9
// Não valida tamanho nem código de país
func DigitsOnly(contact string) string {
	var b strings.Builder
	b.Grow(len(contact))
	for i := 0; i < len(contact); i++ {
		if c := contact[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// WhatsAppLink monta o deep link wa.me; vazio se o contato não tiver dígitos
func WhatsAppLink(contact string) string {
	digits := DigitsOnly(contact)
	if digits == "" {
		return ""
	}
	return whatsAppBaseURL + digits
}

// Display formata o contato no padrão internacional quando o número é válido.
// Caso contrário devolve o texto original sem espaços nas pontas
func Display(contact, region string) string {
	trimmed := strings.TrimSpace(contact)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
}
