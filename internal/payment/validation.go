package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

const invalidBodyMessage = "Invalid request body"

type createIntentBody struct {
	Amount             *int64            `json:"amount" validate:"required,gt=0"`
	Currency           *string           `json:"currency" validate:"required,len=3"`
	PaymentMethodTypes []string          `json:"payment_method_types" validate:"required,min=1,dive,required"`
	Metadata           map[string]string `json:"metadata"`
	Description        *string           `json:"description"`
}

type confirmIntentBody struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

type intentIDParam struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

// Validator checks request shapes before they reach the provider. Every method
// returns either the normalised input or a 400 *PaymentError carrying the first
// violated rule; errors are never aggregated.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// CreateIntent decodes and validates a create request. The currency is upper-cased.
func (v *Validator) CreateIntent(body io.Reader) (IntentRequest, *PaymentError) {
	var in createIntentBody
	if err := decodeJSON(body, &in, true); err != nil {
		return IntentRequest{}, err
	}
	if err := v.check(&in); err != nil {
		return IntentRequest{}, err
	}
	req := IntentRequest{
		Amount:             *in.Amount,
		Currency:           strings.ToUpper(*in.Currency),
		PaymentMethodTypes: in.PaymentMethodTypes,
		Metadata:           in.Metadata,
	}
	if in.Description != nil {
		req.Description = *in.Description
	}
	return req, nil
}

// IntentID validates a payment intent identifier taken from the path.
func (v *Validator) IntentID(id string) (string, *PaymentError) {
	param := intentIDParam{PaymentIntentID: strings.TrimSpace(id)}
	if err := v.check(&param); err != nil {
		return "", err
	}
	return param.PaymentIntentID, nil
}

// ConfirmIntent validates the path identifier and the confirm body.
func (v *Validator) ConfirmIntent(id string, body io.Reader) (string, string, *PaymentError) {
	intentID, perr := v.IntentID(id)
	if perr != nil {
		return "", "", perr
	}
	var in confirmIntentBody
	if err := decodeJSON(body, &in, false); err != nil {
		return "", "", err
	}
	in.PaymentMethodID = strings.TrimSpace(in.PaymentMethodID)
	if err := v.check(&in); err != nil {
		return "", "", err
	}
	return intentID, in.PaymentMethodID, nil
}

func (v *Validator) check(in any) *PaymentError {
	err := v.v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return validationError(ruleMessage(fieldErrs[0]))
	}
	return validationError(invalidBodyMessage)
}

// decodeJSON treats an empty body as an empty object so required-field rules
// produce the message rather than a decode failure. strict rejects unknown keys.
// Anything after the first JSON value is rejected.
func decodeJSON(body io.Reader, dst any, strict bool) *PaymentError {
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(body)
	if strict {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		if !errors.Is(dec.Decode(&struct{}{}), io.EOF) {
			return validationError(invalidBodyMessage)
		}
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return validationError(fmt.Sprintf("%q must be %s", typeErr.Field, kindName(typeErr.Type)))
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return validationError(field + " is not allowed")
	}
	return validationError(invalidBodyMessage)
}

func kindName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "valid"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	default:
		return "valid"
	}
}

func ruleMessage(fe validator.FieldError) string {
	field := fe.Field()
	element := false
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		// dive errors: payment_method_types[0]
		field = ns[strings.Index(ns, ".")+1:]
		element = true
	}
	switch fe.Tag() {
	case "required":
		if element {
			return fmt.Sprintf("%q is not allowed to be empty", field)
		}
		return fmt.Sprintf("%q is required", field)
	case "gt":
		return fmt.Sprintf("%q must be a positive number", field)
	case "len":
		return fmt.Sprintf("%q length must be %s characters long", field, fe.Param())
	case "min":
		return fmt.Sprintf("%q must contain at least %s items", field, fe.Param())
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
