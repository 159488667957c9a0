package gateway

import (
	"io"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/core/common/validation"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

// Attachment is a file sent as multipart content. The bytes are streamed as is.
type Attachment struct {
	Filename string
	Content  io.Reader
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("email", d.Email).Required().Email()
	validator.Field("password", d.Password).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type LoginResponse struct {
	Token string        `json:"token"`
	User  user.Employee `json:"user"`
}

func (r LoginResponse) Identity() user.Identity {
	return user.Identity{
		ID:    r.User.ID,
		Name:  r.User.Name,
		Email: r.User.Email,
		Role:  r.User.Role,
	}
}

// CreateEmployeeDTO provisions an Employee account. The backend assigns the role.
type CreateEmployeeDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d CreateEmployeeDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", d.Name).Required().MaxLength(100)
	validator.Field("email", d.Email).Required().Email()
	validator.Field("password", d.Password).Required().MinLength(6)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// RegisterUserDTO provisions an account with a caller-selected role.
type RegisterUserDTO struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

func (d RegisterUserDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", d.Name).Required().MaxLength(100)
	validator.Field("email", d.Email).Required().Email()
	validator.Field("password", d.Password).Required().MinLength(6)
	validator.Field("role", string(d.Role)).Required().
		OneOf(errors.ErrCodeInvalidRole, string(user.RoleAdmin), string(user.RoleEmployee))

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreateTaskDTO struct {
	Title       string
	Description string
	AssignedTo  string
	Files       []Attachment
}

func (d CreateTaskDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("title", d.Title).Required().MaxLength(200)
	validator.Field("description", d.Description).Required()
	validator.Field("assignedTo", d.AssignedTo).Required()
	validator.Field("files", d.Files).Custom(validAttachments("files"))

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UpdateTaskStatusDTO struct {
	Status task.Status `json:"status"`
}

func (d UpdateTaskStatusDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("status", string(d.Status)).Required().
		OneOf(errors.ErrCodeInvalidStatus, string(task.StatusInProgress), string(task.StatusCompleted))

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// CompleteTaskDTO may carry zero files.
type CompleteTaskDTO struct {
	Files []Attachment
}

func (d CompleteTaskDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("files", d.Files).Custom(validAttachments("files"))

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type SendMessageDTO struct {
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
}

func (d SendMessageDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("receiver", d.Receiver).Required()
	validator.Field("subject", d.Subject).Required().MaxLength(200)
	validator.Field("content", d.Content).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func validAttachments(field string) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		files, _ := value.([]Attachment)
		for _, f := range files {
			if f.Filename == "" || f.Content == nil {
				return errors.NewValidationFieldError(field, "every attachment needs a filename and content", errors.ErrCodeValidationFailed)
			}
		}
		return nil
	}
}
