package gateway

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	errors "github.com/frahmantamala/taskdesk/internal"
)

func (c *Client) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login", dto, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.NewBadResponseError(errors.ErrInvalidToken)
	}
	return &resp, nil
}

func (c *Client) CreateEmployee(ctx context.Context, dto CreateEmployeeDTO) error {
	return c.sendJSON(ctx, http.MethodPost, pathEmployees, dto, nil)
}

func (c *Client) RegisterUser(ctx context.Context, dto RegisterUserDTO) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/auth/register", dto, nil)
}

// DeleteEmployee removes the account. The backend also removes the employee's tasks and messages.
func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, pathEmployees+"/"+url.PathEscape(id), nil, nil)
}

// CreateTask sends the fields and the attachments in one multipart request.
func (c *Client) CreateTask(ctx context.Context, dto CreateTaskDTO) error {
	fields := [][2]string{
		{"title", dto.Title},
		{"description", dto.Description},
		{"assignedTo", dto.AssignedTo},
	}
	body, contentType, err := multipartBody(fields, dto.Files)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, pathTasks, body, contentType, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, pathTasks+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, dto UpdateTaskStatusDTO) error {
	return c.sendJSON(ctx, http.MethodPatch, pathTasks+"/"+url.PathEscape(id)+"/status", dto, nil)
}

// CompleteTask submits zero or more completion files as multipart content.
func (c *Client) CompleteTask(ctx context.Context, id string, dto CompleteTaskDTO) error {
	body, contentType, err := multipartBody(nil, dto.Files)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, pathTasks+"/"+url.PathEscape(id)+"/complete", body, contentType, nil)
}

func (c *Client) SendMessage(ctx context.Context, dto SendMessageDTO) error {
	return c.sendJSON(ctx, http.MethodPost, pathMessages, dto, nil)
}

func (c *Client) MarkMessageRead(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodPatch, pathMessages+"/"+url.PathEscape(id)+"/read", nil, nil)
}

func multipartBody(fields [][2]string, files []Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.NewInternalError("failed to build multipart body", err)
		}
	}
	for _, file := range files {
		part, err := w.CreateFormFile("files", file.Filename)
		if err != nil {
			return nil, "", errors.NewInternalError("failed to build multipart body", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", errors.NewInternalError("failed to read attachment "+file.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.NewInternalError("failed to build multipart body", err)
	}
	return &buf, w.FormDataContentType(), nil
}
