package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

const notBlankTag = "notblank"

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a validator reporting JSON field names with English
// messages
func NewValidator() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = v.RegisterTranslation(notBlankTag, trans,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		})

	return &Validator{validate: v, translator: trans}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Translate renders one field error
func (v *Validator) Translate(fe validator.FieldError) string {
	return fe.Translate(v.translator)
}

var _ echo.Validator = (*Validator)(nil)
