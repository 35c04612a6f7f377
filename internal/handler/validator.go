package handler

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)

// RegisterValidators wires custom binding rules into gin's validator engine.
// Call once at startup before routes are served.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("aadhaar", func(fl validator.FieldLevel) bool {
			return aadhaarPattern.MatchString(fl.Field().String())
		})
	}
}
