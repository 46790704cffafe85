package engine

import "spotwatch/internal/domain/models"

// updateDeltas recomputes the delta set for one spot price. Horizons whose
// reference is unresolved keep their previous values: a transient gap in
// the reference data must never reset a delta to zero.
func updateDeltas(prev models.DeltaSet, spot float64, sessionRef float64, sessionOK bool, month models.ReferenceClose, monthOK bool, year models.ReferenceClose, yearOK bool) models.DeltaSet {
	d := prev
	if sessionOK && sessionRef != 0 {
		d.Session = spot - sessionRef
		d.SessionPct = 100 * d.Session / sessionRef
	}
	if monthOK && month.Price != 0 {
		d.Month = spot - month.Price
		d.MonthPct = 100 * d.Month / month.Price
	}
	if yearOK && year.Price != 0 {
		d.Year = spot - year.Price
		d.YearPct = 100 * d.Year / year.Price
	}
	return d
}
