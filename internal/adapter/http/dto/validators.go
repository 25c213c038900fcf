package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
	}
}

// validateSafeID allows alphanumerics plus dash, underscore and dot.
// Token codes and opaque identifiers pass through request paths and
// SQL parameters, so nothing else gets in.
func validateSafeID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return safeStringRe.MatchString(s)
}

// SanitizeStruct trims surrounding whitespace and HTML-escapes every
// string field of the struct pointed to by v. Nested structs and
// *string fields are handled, everything else is left alone.
func SanitizeStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}
	sanitizeValue(rv.Elem())
}

func sanitizeValue(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Field(i)
			if !f.CanSet() {
				continue
			}
			sanitizeValue(f)
		}
	case reflect.String:
		rv.SetString(sanitizeString(rv.String()))
	case reflect.Ptr:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.String {
			rv.Elem().SetString(sanitizeString(rv.Elem().String()))
		}
	}
}

func sanitizeString(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
