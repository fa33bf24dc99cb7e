package dto

import (
"html"
"reflect"
"regexp"
"strings"

"casino-ledger/pkg/money"

"github.com/gin-gonic/gin/binding"
"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
_ = v.RegisterValidation("safe_id", validateSafeID)
_ = v.RegisterValidation("money", validateMoney)
}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
return safeStringRe.MatchString(fl.Field().String())
}

// validateMoney accepts a positive display amount with at most two decimals,
// no larger than money.MaxAmount.
func validateMoney(fl validator.FieldLevel) bool {
minor, err := ParseAmount(fl.Field().String())
return err == nil && minor > 0
}

// ParseAmount converts a display amount to minor units. An empty string is
// zero; anything above money.MaxAmount is money.ErrOutOfRange.
func ParseAmount(s string) (int64, error) {
s = strings.TrimSpace(s)
if s == "" {
return 0, nil
}
minor, err := money.Parse(s)
if err != nil {
return 0, err
}
if minor > money.MaxAmount || minor < -money.MaxAmount {
return 0, money.ErrOutOfRange
}
return minor, nil
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Fields tagged
// `sanitize:"-"` are left untouched.
func SanitizeStruct(v interface{}) {
rv := reflect.ValueOf(v)
if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
return
}
sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
rt := rv.Type()
for i := 0; i < rv.NumField(); i++ {
f := rv.Field(i)
if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
continue
}
switch f.Kind() {
case reflect.String:
f.SetString(sanitize(f.String()))
case reflect.Ptr:
if f.IsNil() {
continue
}
elem := f.Elem()
if elem.Kind() == reflect.String {
s := sanitize(elem.String())
elem.SetString(s)
}
}
}
}

func sanitize(s string) string {
return html.EscapeString(strings.TrimSpace(s))
}
