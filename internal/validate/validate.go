// Package validate wires request validation: JSON field names, custom tags
// and English messages.
package validate

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^\w+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field may not be blank"

	passwordTag = "pwdpolicy"

	requiredTag  = "required"
	requiredText = "this field is required"
)

var (
	once       sync.Once
	translator ut.Translator
)

// Init registers custom tags and translations on gin's validator engine.
// It is safe to call more than once.
func Init() ut.Translator {
	once.Do(func() {
		enLocale := en.New()
		translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v, translator)
		}
	})
	return translator
}

func register(v *validator.Validate, trans ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(alphaNumUnderTag, func(fl validator.FieldLevel) bool {
		return alphaNumUnderRegex.MatchString(fl.Field().String())
	})
	registerTranslation(v, trans, alphaNumUnderTag, alphaNumUnderText)

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	registerTranslation(v, trans, notBlankTag, notBlankText)

	_ = v.RegisterValidation(passwordTag, func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String()) == ""
	})
	_ = v.RegisterTranslation(passwordTag, trans,
		func(t ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return Password(fe.Value().(string))
		},
	)

	registerTranslation(v, trans, requiredTag, requiredText, true)
}

// registerTranslation registers a fixed message for the validation tag.
func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Password checks the password policy and returns the first violation, or
// an empty string when the password is acceptable.
func Password(pwd string) string {
	if len(pwd) < 8 {
		return "password must be at least 8 characters long"
	}
	allDigits := true
	for _, r := range pwd {
		if unicode.IsSpace(r) {
			return "password must not contain whitespace"
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if allDigits {
		return "password must not be entirely numeric"
	}
	return ""
}

// Fields converts validation errors into a field -> message map.
func Fields(errs validator.ValidationErrors) map[string]string {
	trans := Init()
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		if name == "" {
			name = fe.StructField()
		}
		out[name] = fe.Translate(trans)
	}
	return out
}
