package validator

import (
	"errors"
	"fmt"
	"planner/pkg/logger"
	"planner/pkg/model"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("occupant_type", validateOccupantType); err != nil {
		log.Fatal("Failed to register 'occupant_type' validator",
			"error", err,
		)
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateOccupantType(fl validator.FieldLevel) bool {
	return model.OccupantType(fl.Field().String()).Valid()
}

// ValidateOccupancy checks the identifiers of a take or release call.
func (v *BookingValidator) ValidateOccupancy(slotID, occupantID string, kind model.OccupantType) error {
	var errs ValidationErrors

	if err := v.validate.Var(slotID, "required,mongodb"); err != nil {
		errs = append(errs, v.translateValidationErrors("slot_id", err)...)
	}
	if err := v.validate.Var(occupantID, "required,mongodb"); err != nil {
		errs = append(errs, v.translateValidationErrors("occupant_id", err)...)
	}
	if err := v.validate.Var(string(kind), "occupant_type"); err != nil {
		errs = append(errs, ValidationError{
			Field:   "occupant_type",
			Message: fmt.Sprintf("occupant_type must be one of: %s %s", model.OccupantApplication, model.OccupantPanelist),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) ValidateSlotID(slotID string) error {
	if err := v.validate.Var(slotID, "required,mongodb"); err != nil {
		return v.translateValidationErrors("slot_id", err)
	}
	return nil
}

func (v *BookingValidator) ValidateReschedule(req *model.RescheduleRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		return v.translateValidationErrors("", err)
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(field string, err error) ValidationErrors {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return ValidationErrors{{Field: field, Message: err.Error()}}
	}

	var validationErrors ValidationErrors
	for _, err := range validationErrs {
		name := err.Field()
		if name == "" {
			name = field
		}
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", name)
		case "required_without":
			message = fmt.Sprintf("%s is required unless %s is set", name, strings.ToLower(err.Param()))
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", name)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", name, err.Param())
		case "nefield":
			message = fmt.Sprintf("%s must differ from %s", name, err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   name,
			Message: message,
		})
	}

	return validationErrors
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
