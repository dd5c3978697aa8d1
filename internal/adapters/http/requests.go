package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

const maxJSONBodyBytes = 1 << 20

type askQuestionRequest struct {
	Question   string `json:"question" validate:"required,max=4000"`
	ClassLevel string `json:"class_level" validate:"required"`
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
}

type searchContentRequest struct {
	Query      string `json:"query" validate:"required,max=4000"`
	ClassLevel string `json:"class_level" validate:"required"`
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
	TopK       *int   `json:"top_k" validate:"omitempty,min=1,max=50"`
}

type generateSummaryRequest struct {
	ClassLevel string `json:"class_level" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Chapter    string `json:"chapter" validate:"required"`
}

type generateQuizRequest struct {
	ClassLevel string `json:"class_level" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Chapter    string `json:"chapter" validate:"required"`
	MCQCount   *int   `json:"mcq_count" validate:"omitempty,min=1,max=20"`
	ShortCount *int   `json:"short_count" validate:"omitempty,min=0,max=10"`
}

type uploadTextbookRequest struct {
	ClassLevel  string `json:"class_level" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	ChapterName string `json:"chapter_name"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a bounded JSON body into dst, trims its string fields and
// validates it.
func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("no JSON data provided"))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return rt.validateStruct(dst)
}

func (rt *Router) validateStruct(dst any) error {
	trimStrings(dst)
	if err := rt.validate.Struct(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", describeValidation(err))
	}
	return nil
}

func trimStrings(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
