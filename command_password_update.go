package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

type UpdatePasswordMessage struct {
	Identity        Identity `json:"-"`
	CurrentPassword string   `json:"passwordCurrent"`
	Password        string   `json:"password"`
	PasswordConfirm string   `json:"passwordConfirm"`
}

type UpdatePasswordHandler struct {
	svc *services
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) (*AuthResult, error) {
	select {
	case <-ctx.Done():
		return nil, oops.Code(textCodeInternal).Wrapf(ctx.Err(), "context cancelled during password update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) (*AuthResult, error) {
	user, err := h.svc.loadActive(ctx, event.Identity)
	if err != nil {
		return nil, err
	}

	if event.CurrentPassword == "" {
		return nil, oops.Code(textCodeValidation).Wrap(NewValidationError(errors.New("please provide your current password")))
	}

	if err := h.svc.hasher.Compare(event.CurrentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, oops.Code(textCodeAuth).With("user_id", user.ID.String()).Wrap(ErrWrongCurrentPassword)
		}
		return nil, err
	}

	if err := validateNewPassword(event.Password, event.PasswordConfirm, h.svc.cfg.MinPasswordLength); err != nil {
		return nil, err
	}

	result, err := h.svc.commitPasswordChange(ctx, &passwordChange{
		user:     user,
		password: event.Password,
		criteria: []UpdateCriteria{WhereActive()},
		event:    ActivityEventPasswordChanged,
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, oops.Code(textCodeUnauthorized).With("user_id", user.ID.String()).Wrap(ErrTokenUserGone)
		}
		return nil, err
	}
	return result, nil
}
