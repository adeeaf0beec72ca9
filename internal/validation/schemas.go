package validation

import "strings"

// Schema names accepted by Validate.
const (
	SchemaLogin                 = "login"
	SchemaRegister              = "register"
	SchemaOTP                   = "otp"
	SchemaPasswordResetRequest  = "password-reset-request"
	SchemaPasswordResetComplete = "password-reset-complete"
)

// Field order in each struct is the order violations are reported in.

// LoginInput is the validated form of the login schema.
type LoginInput struct {
	Email    string `mapstructure:"user_email" json:"user_email" validate:"required,email"`
	Password string `mapstructure:"user_password" json:"user_password" validate:"min=8,max=16"`
}

// RegisterInput is the validated form of the register schema.
type RegisterInput struct {
	Name     string `mapstructure:"user_name" json:"user_name" validate:"required"`
	Email    string `mapstructure:"user_email" json:"user_email" validate:"required,email"`
	Password string `mapstructure:"user_password" json:"user_password" validate:"min=8,max=16"`
}

// OTPInput is the validated form of the otp schema.
type OTPInput struct {
	Code string `mapstructure:"otp" json:"otp" validate:"len=6"`
}

// PasswordResetRequestInput is the validated form of the password-reset-request schema.
type PasswordResetRequestInput struct {
	Email string `mapstructure:"user_email" json:"user_email" validate:"required,email"`
}

// PasswordResetCompleteInput is the validated form of the password-reset-complete
// schema. NewPassword confirms Password and must equal it.
type PasswordResetCompleteInput struct {
	Email       string `mapstructure:"user_email" json:"user_email" validate:"required,email"`
	OTP         string `mapstructure:"user_otp" json:"user_otp" validate:"len=6"`
	Password    string `mapstructure:"user_password" json:"user_password" validate:"min=8,max=16"`
	NewPassword string `mapstructure:"user_new_password" json:"user_new_password" validate:"min=8,max=16,eqfield=Password"`
}

// normalizer is implemented by inputs that clean up decoded values before
// constraints are checked.
type normalizer interface {
	normalize()
}

func (in *LoginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

func (in *PasswordResetRequestInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

func (in *PasswordResetCompleteInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}

// newInput returns a fresh pointer to the struct for schema, or nil.
func newInput(schema string) any {
	switch schema {
	case SchemaLogin:
		return &LoginInput{}
	case SchemaRegister:
		return &RegisterInput{}
	case SchemaOTP:
		return &OTPInput{}
	case SchemaPasswordResetRequest:
		return &PasswordResetRequestInput{}
	case SchemaPasswordResetComplete:
		return &PasswordResetCompleteInput{}
	default:
		return nil
	}
}
