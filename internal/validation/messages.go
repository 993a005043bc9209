package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/task-realtime-api/internal/constants"
)

var passwordLengthMessage = fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength)

var messages = map[string]string{
	"title.required":       "Title is required",
	"title.min":            "Title is required",
	"title.max":            fmt.Sprintf("Title must be less than %d characters", constants.TitleMaxLength),
	"description.required": "Description is required",
	"description.min":      "Description is required",
	"description.max":      fmt.Sprintf("Description must be less than %d characters", constants.DescriptionMaxLength),
	"dueDate.required":     "Due date is required",
	"dueDate.date":         "Invalid date format",
	"priority.oneof":       "Invalid priority value",
	"status.oneof":         "Invalid status value",

	"email.required":           "Email is required",
	"email.email":              "Invalid email address",
	"password.required":        "Password is required",
	"password.min":             passwordLengthMessage,
	"password.password":        "Password must contain at least one uppercase letter, one lowercase letter, and one number",
	"currentPassword.required": "Current password is required",
	"newPassword.required":     "New password is required",
	"newPassword.min":          passwordLengthMessage,
	"newPassword.password":     "Password must contain at least one uppercase letter, one lowercase letter, and one number",
	"name.required":            "Name is required",
	"name.min":                 "Name must be at least 2 characters",
	"name.max":                 "Name must be less than 100 characters",
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
