package converse

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct checks v against its `validate` tags and wraps failures in
// ErrValidation.
func ValidateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Validate checks universal constraints on StreamRequest.
func (r StreamRequest) Validate() error {
	if BlankText(r.Message) {
		return fmt.Errorf("message must not be blank: %w", ErrValidation)
	}
	return ValidateStruct(r)
}

// ValidateTitle checks a conversation title.
func ValidateTitle(title string) error {
	if BlankText(title) {
		return fmt.Errorf("title must not be blank: %w", ErrValidation)
	}
	if n := len([]rune(title)); n > 200 {
		return fmt.Errorf("title must be at most 200 characters, got %d: %w", n, ErrValidation)
	}
	return nil
}
