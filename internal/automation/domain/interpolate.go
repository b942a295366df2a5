package domain

import (
	"strconv"
	"strings"
)

const fallbackContactName = "Cliente"

// TemplateData carries the values placeholders are substituted with.
type TemplateData struct {
	ContactName  string
	ContactPhone string
	ContactEmail string
	DealValue    float64
	DealTitle    string
	FunnelName   string
	StageName    string
}

// Interpolate substitutes the supported placeholders in template. Tokens are
// matched exactly and case-sensitively in a single left-to-right pass, so
// substituted values are never rescanned. Unknown placeholders are kept.
func Interpolate(template string, data TemplateData) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	name := data.ContactName
	if strings.TrimSpace(name) == "" {
		name = fallbackContactName
	}

	return strings.NewReplacer(
		"{{nome}}", name,
		"{{telefone}}", data.ContactPhone,
		"{{email}}", data.ContactEmail,
		"{{valor}}", FormatValue(data.DealValue),
		"{{funil}}", data.FunnelName,
		"{{etapa}}", data.StageName,
		"{{titulo}}", data.DealTitle,
	).Replace(template)
}

// FormatValue renders a deal value without trailing zeros: 150 → "150",
// 99.9 → "99.9".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
