// Package validator registers custom binding validations on gin's
// request validator.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/careloop/recovery-api/pkg/clock"
)

// Register installs the custom tags. Call once at startup, before the
// router starts binding requests.
func Register() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("hhmm", validHHMM)
}

// validHHMM accepts 24-hour clock times such as "08:00" or "21:30".
func validHHMM(fl validator.FieldLevel) bool {
	_, ok := clock.MinuteOfDay(fl.Field().String())
	return ok
}
