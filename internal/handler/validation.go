package handler

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that understands decimal.Decimal fields
// through the decimal_gt and decimal_gte tags.
func newValidator() *validator.Validate {
	v := validator.New()

	// validate decimals as their string form so field tags are applied to them
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt", compareDecimal(func(d, limit decimal.Decimal) bool { return d.GreaterThan(limit) }))
	_ = v.RegisterValidation("decimal_gte", compareDecimal(func(d, limit decimal.Decimal) bool { return d.GreaterThanOrEqual(limit) }))
	return v
}

func compareDecimal(cmp func(d, limit decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(d, limit)
	}
}
