package port

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance returns the shared validator with port-specific rules.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		// portname: non-empty, trimmed, printable, and free of the '.' used
		// to separate stage and port in specs.
		_ = v.RegisterValidation("portname", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			if name == "" || strings.TrimSpace(name) != name || strings.Contains(name, ".") {
				return false
			}
			for _, r := range name {
				if !unicode.IsPrint(r) {
					return false
				}
			}
			return true
		})

		validateInst = v
	})
	return validateInst
}

func validateName(p Port, name string) error {
	if err := validatorInstance().Var(name, "portname,max=128"); err != nil {
		ce := newConnectionError(ErrCodeInvalidName, p, "invalid port name %q", name)
		ce.Cause = err
		return ce
	}
	return nil
}
