package handlers

import (
	"errors"

	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pt_br_translations "github.com/go-playground/validator/v10/translations/pt_BR"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	locale := pt_BR.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("pt_BR")
	if err := pt_br_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// validationMessage runs struct validation and returns the first violated
// rule's translated message, or "" when the payload is valid.
func validationMessage(payload any) string {
	err := validate.Struct(payload)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(translator)
	}
	return msgInvalidPayload
}
