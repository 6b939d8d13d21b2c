package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("rgbcolor", validateRGBColor)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// validateRGBColor checks the color token wire form: "rgb(r,g,b)" with
// decimal channels 0-255 and no spaces
func validateRGBColor(fl validator.FieldLevel) bool {
	color := fl.Field().String()

	inner, ok := strings.CutPrefix(color, "rgb(")
	if !ok {
		return false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return false
	}

	channels := strings.Split(inner, ",")
	if len(channels) != 3 {
		return false
	}

	for _, ch := range channels {
		if ch == "" || len(ch) > 3 {
			return false
		}
		value := 0
		for _, r := range ch {
			if r < '0' || r > '9' {
				return false
			}
			value = value*10 + int(r-'0')
		}
		if value > 255 {
			return false
		}
	}

	return true
}
