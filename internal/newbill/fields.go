package newbill

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/billed/internal/bill"
)

// DefaultPct is used when the percentage field is left empty
const DefaultPct = 20

// Form field names of the new bill page
const (
	FieldType       = "expense-type"
	FieldName       = "expense-name"
	FieldDate       = "datepicker"
	FieldAmount     = "amount"
	FieldVAT        = "vat"
	FieldPct        = "pct"
	FieldCommentary = "commentary"
	FieldFile       = "file"
)

// Fields are the values captured from the new bill form
type Fields struct {
	Type       string
	Name       string
	Date       *string
	Amount     decimal.NullDecimal
	VAT        decimal.NullDecimal
	Pct        *int
	Commentary string
}

// ParseForm reads the form values. Values that cannot be parsed are
// reported by field name and left empty.
func ParseForm(form url.Values) (Fields, map[string]string) {
	problems := make(map[string]string)
	f := Fields{
		Type:       strings.TrimSpace(form.Get(FieldType)),
		Name:       strings.TrimSpace(form.Get(FieldName)),
		Commentary: strings.TrimSpace(form.Get(FieldCommentary)),
	}
	if f.Type == "" {
		f.Type = bill.DefaultType
	}

	if d := strings.TrimSpace(form.Get(FieldDate)); d != "" {
		f.Date = &d
	}

	if raw := strings.TrimSpace(form.Get(FieldAmount)); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			problems["amount"] = "must be a number"
		} else {
			f.Amount = decimal.NewNullDecimal(amount)
		}
	}

	if raw := strings.TrimSpace(form.Get(FieldVAT)); raw != "" {
		vat, err := decimal.NewFromString(raw)
		if err != nil {
			problems["vat"] = "must be a number"
		} else {
			f.VAT = decimal.NewNullDecimal(vat)
		}
	}

	pct := DefaultPct
	if raw := strings.TrimSpace(form.Get(FieldPct)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems["pct"] = "must be a whole number"
		} else {
			pct = n
		}
	}
	f.Pct = &pct

	return f, problems
}

// Values renders the fields back into form values, for redisplaying the form
func (f Fields) Values() url.Values {
	v := url.Values{}
	v.Set(FieldType, f.Type)
	v.Set(FieldName, f.Name)
	if f.Date != nil {
		v.Set(FieldDate, *f.Date)
	}
	if f.Amount.Valid {
		v.Set(FieldAmount, f.Amount.Decimal.String())
	}
	if f.VAT.Valid {
		v.Set(FieldVAT, f.VAT.Decimal.String())
	}
	if f.Pct != nil {
		v.Set(FieldPct, strconv.Itoa(*f.Pct))
	}
	v.Set(FieldCommentary, f.Commentary)
	return v
}
