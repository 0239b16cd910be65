package credential

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/furiosa-ai/furiosa-client/errs"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("credential: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	// Report fields by the variable that sets them.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("env"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Validate checks s against its declared tags. The first offending
// field is returned as an errs.KindEnvVar error naming its variable.
func Validate(s Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) || len(verrors) == 0 {
		return errs.Wrap(errs.KindEnvVar, "validating settings", err)
	}

	first := verrors[0]
	return &errs.Error{
		Kind:    errs.KindEnvVar,
		Var:     first.Field(),
		Message: customErrForTag(first.Tag(), first),
		Err:     err,
	}
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "must be set"
	default:
		return verror.Translate(translator)
	}
}
