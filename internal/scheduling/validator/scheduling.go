package validator

import (
	"errors"
	"fmt"
	"planner/pkg/config"
	"planner/pkg/logger"
	"planner/pkg/model"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	interviewModeRegex = regexp.MustCompile(`^[\p{Ll}0-9_]+$`)
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

type SchedulingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSchedulingValidator(log *logger.Logger) *SchedulingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("interview_mode", validateInterviewMode); err != nil {
		log.Fatal("Failed to register 'interview_mode' validator",
			"error", err,
		)
	}

	return &SchedulingValidator{
		validate: v,
		logger:   log,
	}
}

// validateInterviewMode expects the sanitized form, e.g. "video_call".
func validateInterviewMode(fl validator.FieldLevel) bool {
	return interviewModeRegex.MatchString(fl.Field().String())
}

func (v *SchedulingValidator) ValidatePanelCreate(req *model.PanelCreate) error {
	return v.validateStruct(req)
}

func (v *SchedulingValidator) ValidateSlotCreate(req *model.SlotCreate) error {
	return v.validateStruct(req)
}

func (v *SchedulingValidator) ValidateRebalance(req *model.RebalanceRequest) error {
	return v.validateStruct(req)
}

func (v *SchedulingValidator) ValidateID(field, id string) error {
	if err := v.validate.Var(id, "required,mongodb"); err != nil {
		return v.translateValidationErrors(field, err)
	}
	return nil
}

func (v *SchedulingValidator) ValidatePanelUpdate(upd *model.PanelUpdate) error {
	var errs ValidationErrors

	if upd.PanelName.IsSet() {
		errs = append(errs, v.check("panel_name", upd.PanelName.Value(), "min=2,max=100")...)
	}
	errs = append(errs, v.checkInterviewMode(upd.InterviewMode)...)
	errs = append(errs, v.checkPanelists(upd.Panelists)...)
	errs = append(errs, v.checkUserLimit(upd.UserLimit)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *SchedulingValidator) ValidateSlotUpdate(upd *model.SlotUpdate) error {
	var errs ValidationErrors

	errs = append(errs, v.checkInterviewMode(upd.InterviewMode)...)
	errs = append(errs, v.checkPanelists(upd.Panelists)...)
	errs = append(errs, v.checkUserLimit(upd.UserLimit)...)

	if upd.InterviewListID.IsSet() {
		errs = append(errs, v.check("interview_list_id", upd.InterviewListID.Value(), "mongodb")...)
	}
	if upd.Time.IsClear() {
		errs = append(errs, ValidationError{Field: "time", Message: "time cannot be cleared"})
	}
	if upd.EndTime.IsClear() {
		errs = append(errs, ValidationError{Field: "end_time", Message: "end_time cannot be cleared"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *SchedulingValidator) checkInterviewMode(f model.Field[string]) ValidationErrors {
	if f.IsClear() {
		return ValidationErrors{{Field: "interview_mode", Message: "interview_mode cannot be cleared"}}
	}
	if f.IsSet() {
		return v.check("interview_mode", f.Value(), "required,min=2,max=50,interview_mode")
	}
	return nil
}

func (v *SchedulingValidator) checkPanelists(f model.Field[[]string]) ValidationErrors {
	if f.IsSet() {
		return v.check("panelists", f.Value(), "dive,mongodb")
	}
	return nil
}

func (v *SchedulingValidator) checkUserLimit(f model.Field[int]) ValidationErrors {
	if f.IsSet() {
		return v.check("user_limit", f.Value(), fmt.Sprintf("min=%d,max=%d", config.MinUserLimit, config.MaxUserLimit))
	}
	return nil
}

func (v *SchedulingValidator) check(field string, value any, tag string) ValidationErrors {
	if err := v.validate.Var(value, tag); err != nil {
		return v.translateValidationErrors(field, err)
	}
	return nil
}

func (v *SchedulingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		return v.translateValidationErrors("", err)
	}
	return nil
}

func (v *SchedulingValidator) translateValidationErrors(field string, err error) ValidationErrors {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return ValidationErrors{{Field: field, Message: err.Error()}}
	}

	var validationErrors ValidationErrors
	for _, fe := range validationErrs {
		name := fe.Field()
		if name == "" || strings.HasPrefix(name, "[") {
			name = field + name
		}
		message := fe.Error()

		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", name)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", name)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", name, fe.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", name, strings.ToLower(fe.Param()))
		case "interview_mode":
			message = fmt.Sprintf("%s must contain only lowercase letters, digits and underscores", name)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   name,
			Message: message,
		})
	}

	return validationErrors
}
