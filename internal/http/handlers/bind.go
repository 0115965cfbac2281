package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	pt_BR_translations "github.com/go-playground/validator/v10/translations/pt_BR"
	"golang.org/x/text/language"
)

const maxBodyBytes = 1 << 20

// Binder decodes JSON bodies and validates them, translating validation
// messages to the request locale.
type Binder struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
}

// BindError is a client input problem.
type BindError struct {
	Field   string
	Message string
}

func (e *BindError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewBinder builds a validator with json field names and en, pt_BR and es
// translations.
func NewBinder() *Binder {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc, pt_BR.New(), es.New())

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	if trans, ok := uni.GetTranslator("en"); ok {
		_ = en_translations.RegisterDefaultTranslations(v, trans)
	}
	if trans, ok := uni.GetTranslator("pt_BR"); ok {
		_ = pt_BR_translations.RegisterDefaultTranslations(v, trans)
	}
	if trans, ok := uni.GetTranslator("es"); ok {
		_ = es_translations.RegisterDefaultTranslations(v, trans)
	}
	return &Binder{validate: v, uni: uni}
}

// translator picks the translator for a negotiated locale.
func (b *Binder) translator(tag language.Tag) ut.Translator {
	locale := "en"
	switch base, _ := tag.Base(); base.String() {
	case "pt":
		locale = "pt_BR"
	case "es":
		locale = "es"
	}
	trans, _ := b.uni.GetTranslator(locale)
	return trans
}

// Struct validates v and returns the first failure as a BindError.
func (b *Binder) Struct(v any, tag language.Tag) error {
	err := b.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &BindError{Field: fe.Field(), Message: fe.Translate(b.translator(tag))}
	}
	return &BindError{Message: err.Error()}
}

// decodeJSON reads one JSON document from r into T, rejecting unknown fields
// and trailing data, then validates it.
func decodeJSON[T any](b *Binder, r *http.Request, tag language.Tag) (T, error) {
	var zero T
	if r.Body == nil {
		return zero, &BindError{Message: "empty body"}
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	var dst T
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, &BindError{Message: "empty body"}
		}
		return zero, &BindError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return zero, &BindError{Message: "unexpected trailing data"}
	}
	if err := b.Struct(dst, tag); err != nil {
		return zero, err
	}
	return dst, nil
}
