package validate

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
)

// Validator checks request payloads and reports fields by their JSON names.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{v: v, trans: trans}
}

// Struct validates s.
func (v *Validator) Struct(s any) error {
	return v.v.Struct(s)
}

// DecodeJSON reads a JSON body into dst and validates it.
func (v *Validator) DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return v.Struct(dst)
}

// Translate maps each failing field to a readable message. Errors that did
// not come from validation are reported under "detail".
func (v *Validator) Translate(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(v.trans)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

// Respond writes a 400 describing err.
func (v *Validator) Respond(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
		return
	}

	details := make(map[string]interface{}, len(verrs))
	for field, msg := range v.Translate(err) {
		details[field] = msg
	}
	code := httperrors.ErrCodeValidationFailed
	if verrs[0].Tag() == "required" {
		code = httperrors.ErrCodeMissingField
	}
	httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, code, verrs[0].Translate(v.trans), details)
}
