package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"gad-esmeraldas/internal/access/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterCustomValidators registers custom validation rules for the access module
func RegisterCustomValidators(validate *validator.Validate) error {
	rules := map[string]validator.Func{
		"access_level":           validateAccessLevel,
		"cross_department_level": validateCrossDepartmentLevel,
		"object_id":              validateObjectID,
		"template_name":          validateTemplateName,
	}
	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// NewValidator returns a validator with the access rules registered
func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := RegisterCustomValidators(validate); err != nil {
		return nil, err
	}
	return validate, nil
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validateAccessLevel(fl validator.FieldLevel) bool {
	return models.AccessLevel(fl.Field().String()).IsValid()
}

func validateCrossDepartmentLevel(fl validator.FieldLevel) bool {
	return models.CrossDepartmentLevel(fl.Field().String()).IsValid()
}

func validateObjectID(fl validator.FieldLevel) bool {
	id, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil && !id.IsZero()
}

// Template names are 3-100 characters once surrounding whitespace is removed
func validateTemplateName(fl validator.FieldLevel) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= 3 && n <= 100
}

// ValidateStruct validates a struct using the validator instance
func ValidateStruct(validate *validator.Validate, s interface{}) []string {
	var messages []string

	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			messages = append(messages, formatValidationError(fe))
		}
	} else if err != nil {
		messages = append(messages, err.Error())
	}

	return messages
}

// formatValidationError formats validation errors for user-friendly messages
func formatValidationError(err validator.FieldError) string {
	field := err.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "ip":
		return fmt.Sprintf("%s must be a valid IP address", field)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, err.Param())
	case "access_level":
		return fmt.Sprintf("%s must be one of OWNER, CONTRIBUTOR, OBSERVER, REPOSITORY", field)
	case "cross_department_level":
		return fmt.Sprintf("%s must be one of READ_ONLY, OBSERVE_COMMENT, COLLABORATE", field)
	case "object_id":
		return fmt.Sprintf("%s must be a valid ObjectID", field)
	case "template_name":
		return fmt.Sprintf("%s must be between 3 and 100 characters", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
