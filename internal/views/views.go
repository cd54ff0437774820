// Package views renders the HTML pages of the service. Pages are written
// as .templ files; run `templ generate` after editing them.
package views

import "github.com/mauv0809/analista/internal/models"

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

func price(a models.Analysis) string {
	if a.CurrentPrice == nil {
		return "N/A"
	}
	return a.Currency + " " + a.CurrentPrice.StringFixed(2)
}

func status(a models.Analysis) string {
	if a.Failed {
		return "erro"
	}
	return "ok"
}
