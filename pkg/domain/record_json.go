package domain

import "encoding/json"

// MarshalJSON renders a record as a flat object keyed by field code, the
// shape API clients and spreadsheet tooling expect. Absent fields are
// omitted rather than emitted as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Figures)+4)
	out[FieldFiscalYear] = r.FiscalYear
	out[FieldTaxID] = r.TaxID
	if r.CompanyName != nil {
		out[FieldCompanyName] = *r.CompanyName
	}
	if r.AccountItem != nil {
		out[FieldAccountItem] = *r.AccountItem
	}
	for code, d := range r.Figures {
		out[code] = d
	}
	return json.Marshal(out)
}
