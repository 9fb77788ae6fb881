package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// SignupInput is the payload for Signup. There is no role field, new
// accounts always start as RoleUser.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ProfileInput is the payload for UpdateProfile. Nil fields are left alone.
// Password fields are only present so they can be refused.
type ProfileInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

// ValidateStringEquals builds a rule that requires value to equal str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func validateMaxBytes(max int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > max {
			return errors.New("is too long")
		}
		return nil
	}
}

func passwordRules(minLength int) []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(minLength, 0),
		validation.By(validateMaxBytes(maxPasswordBytes)),
	}
}

func validateNewPassword(password, confirm string, minLength int) error {
	err := validation.Errors{
		"password":        validation.Validate(password, passwordRules(minLength)...),
		"passwordConfirm": validation.Validate(confirm, validation.Required, validation.By(ValidateStringEquals(password))),
	}.Filter()
	if err != nil {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(err))
	}
	return nil
}

func validateSignup(in RegisterUserMessage, minLength int) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, passwordRules(minLength)...),
		validation.Field(&in.PasswordConfirm, validation.Required, validation.By(ValidateStringEquals(in.Password))),
	)
	if err != nil {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(err))
	}
	return nil
}

func validateLogin(email, password string) error {
	if email == "" || password == "" {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(errors.New("please provide email and password")))
	}
	return nil
}

func validateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(validation.Errors{"email": err}))
	}
	return nil
}

func validateProfile(user *User) error {
	user.Name = strings.TrimSpace(user.Name)
	err := validation.Errors{
		"name":  validation.Validate(user.Name, validation.Required, validation.Length(1, 100)),
		"email": validation.Validate(user.Email, validation.Required, is.Email),
	}.Filter()
	if err != nil {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(err))
	}
	return nil
}
