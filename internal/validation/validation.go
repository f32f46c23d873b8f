// Package validation wraps go-playground/validator with English messages keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

var (
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"

	requiredTag  = "required"
	requiredText = "{0} is required"

	settingKeyTag   = "lms_key"
	settingKeyText  = "{0} must start with a letter and contain only lowercase letters, digits and underscores"
	settingKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func instance() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Use JSON tag names for errors instead of Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation(notBlankTag, validators.NotBlank)
		_ = validate.RegisterValidation(settingKeyTag, func(fl validator.FieldLevel) bool {
			return settingKeyRegex.MatchString(fl.Field().String())
		})
		registerTranslation(notBlankTag, notBlankText, false)
		registerTranslation(settingKeyTag, settingKeyText, false)
		registerTranslation(requiredTag, requiredText, true)
	})
	return validate, translator
}

func registerTranslation(tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	val, trans := instance()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Infra(err, "validate input")
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(trans),
		})
	}
	msg := "validation failed"
	if len(fields) == 1 {
		msg = fields[0].Message
	}
	return apperr.Validation(msg, fields...)
}

// Var validates a single value, reporting failures against field.
func Var(field string, value any, tag string) error {
	val, trans := instance()
	err := val.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Infra(err, "validate %s", field)
	}
	msg := strings.TrimSpace(field + " " + strings.TrimSpace(verrs[0].Translate(trans)))
	return apperr.Field(field, msg)
}

// SettingKey reports whether key is an acceptable system setting name.
func SettingKey(key string) bool {
	return settingKeyRegex.MatchString(key)
}
