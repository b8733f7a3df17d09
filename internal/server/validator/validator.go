package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator wraps gin's binding engine with json field names and english
// translations so validation failures come back readable.
type Validator struct {
	trans ut.Translator
}

func New() *Validator {
	v := &Validator{}

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		english := en.New()
		uni := ut.New(english, english)
		v.trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(engine, v.trans)
	}

	return v
}

// ParseError converts raw binding errors into a field -> message map.
func (v *Validator) ParseError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()

			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Error()
			if v.trans != nil {
				msg = e.Translate(v.trans)
			}

			if e.Tag() == "oneof" {
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["body"] = "Invalid request body format. Please fix your payload."
	return errMap
}
