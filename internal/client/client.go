// Package client provides typed calls to the summarization service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/raphaelgruber/docsum/internal/gateway"
	"github.com/raphaelgruber/docsum/internal/models"
)

// =============================================================================
// ENDPOINTS
// =============================================================================

var (
	EndpointLogin = gateway.Endpoint{
		Name: "login", Method: http.MethodPost, Path: "/user/login/password", Auth: gateway.AuthNone,
	}
	EndpointRegister = gateway.Endpoint{
		Name: "register", Method: http.MethodPost, Path: "/user/register/password", Auth: gateway.AuthNone,
	}
	EndpointForgotPassword = gateway.Endpoint{
		Name: "forgot_password", Method: http.MethodPost, Path: "/user/auth/forgot_password", Auth: gateway.AuthNone,
	}
	EndpointResetPassword = gateway.Endpoint{
		Name: "reset_password", Method: http.MethodPost, Path: "/user/auth/reset_password", Auth: gateway.AuthNone,
	}
	EndpointGenerateSummary = gateway.Endpoint{
		Name: "generate_summary", Method: http.MethodPost, Path: "/generate_summary", Auth: gateway.AuthQueryToken,
	}
	EndpointListTasks = gateway.Endpoint{
		Name: "list_tasks", Method: http.MethodGet, Path: "/user/tasks", Auth: gateway.AuthQueryToken,
	}
	EndpointGetSummary = gateway.Endpoint{
		Name: "get_summary", Method: http.MethodGet, Path: "/user/get_summary", Auth: gateway.AuthQueryToken,
	}
)

// UploadField is the multipart field carrying the document.
const UploadField = "file"

// Client issues typed calls through a gateway.
type Client struct {
	gw *gateway.Gateway
}

// New creates a client over gw.
func New(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

// missingField reports a 200 response that lacks a required field. It is
// classified like any other unusable payload.
func missingField(endpoint, field string) error {
	return &gateway.Error{
		Endpoint: endpoint,
		Kind:     gateway.KindTransport,
		Cause:    errors.New("parse response: missing " + field),
	}
}

// =============================================================================
// ACCOUNT OPERATIONS
// =============================================================================

// LoginRequest is the password login payload.
type LoginRequest struct {
	UserEmail    string `json:"user_email"`
	UserPassword string `json:"user_password"`
}

// RegisterRequest is the account registration payload.
type RegisterRequest struct {
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	UserPassword string `json:"user_password"`
}

// OTPRequest confirms a registration with a one-time code.
type OTPRequest struct {
	OTP string `json:"otp"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	UserEmail       string `json:"user_email"`
	UserOTP         string `json:"user_otp"`
	UserPassword    string `json:"user_password"`
	UserNewPassword string `json:"user_new_password"`
}

// tokenResponse is returned by login and password reset.
type tokenResponse struct {
	JWTToken string `json:"jwt_token"`
}

// Login authenticates with email and password and returns the credential.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	return c.tokenCall(ctx, EndpointLogin, gateway.Request{JSON: req})
}

// Register creates an account. The acknowledgement body is opaque.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.gw.Call(ctx, EndpointRegister, gateway.Request{JSON: req}).Err()
}

// ConfirmOTP submits a registration one-time code.
func (c *Client) ConfirmOTP(ctx context.Context, code string) error {
	return c.gw.Call(ctx, EndpointRegister, gateway.Request{JSON: OTPRequest{OTP: code}}).Err()
}

// ForgotPassword asks the server to send a reset code to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := gateway.Request{Query: url.Values{"user_email": {email}}}
	return c.gw.Call(ctx, EndpointForgotPassword, req).Err()
}

// ResetPassword completes a password reset and returns the new credential.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	return c.tokenCall(ctx, EndpointResetPassword, gateway.Request{JSON: req})
}

func (c *Client) tokenCall(ctx context.Context, ep gateway.Endpoint, req gateway.Request) (string, error) {
	var resp tokenResponse
	if err := c.gw.Fetch(ctx, ep, req, &resp); err != nil {
		return "", err
	}
	if resp.JWTToken == "" {
		return "", missingField(ep.Name, "jwt_token")
	}
	return resp.JWTToken, nil
}

// =============================================================================
// TASK OPERATIONS
// =============================================================================

// Task is one job as reported by the task list.
type Task struct {
	ID     models.JobID `json:"user_task_id"`
	Status string       `json:"user_task_status"`
}

// GenerateSummary uploads a document and returns the server task id.
func (c *Client) GenerateSummary(ctx context.Context, filename string, content io.Reader) (models.JobID, error) {
	req := gateway.Request{File: &gateway.FilePart{Field: UploadField, Filename: filename, Content: content}}

	var resp struct {
		TaskID models.JobID `json:"task_id"`
	}
	if err := c.gw.Fetch(ctx, EndpointGenerateSummary, req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", missingField(EndpointGenerateSummary.Name, "task_id")
	}
	return resp.TaskID, nil
}

// ListTasks returns every task of the authenticated user in server order.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.gw.Fetch(ctx, EndpointListTasks, gateway.Request{}, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetSummary fetches the result of a finished task. A JSON string result is
// returned unquoted; any other JSON value is returned as compact JSON text.
func (c *Client) GetSummary(ctx context.Context, id models.JobID) (string, error) {
	req := gateway.Request{Query: url.Values{"task_id": {id.String()}}}

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.gw.Fetch(ctx, EndpointGetSummary, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return "", missingField(EndpointGetSummary.Name, "result")
	}

	var text string
	if err := json.Unmarshal(resp.Result, &text); err == nil {
		return text, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, resp.Result); err != nil {
		return string(resp.Result), nil
	}
	return buf.String(), nil
}
