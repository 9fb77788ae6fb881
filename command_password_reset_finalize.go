package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

type FinalizePasswordResetMessage struct {
	Token           string `json:"token" doc:"Reset token from the email link"`
	Password        string `json:"password" example:"some_secret_word" doc:"Password"`
	PasswordConfirm string `json:"passwordConfirm" example:"some_secret_word" doc:"Password confirmation"`
}

type FinalizePasswordResetHandler struct {
	svc *services
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) (*AuthResult, error) {
	select {
	case <-ctx.Done():
		return nil, oops.Code(textCodeInternal).Wrapf(ctx.Err(), "context cancelled during password reset finalization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) (*AuthResult, error) {
	token := strings.TrimSpace(event.Token)
	if token == "" {
		return nil, oops.Code(textCodeResetToken).Wrap(ErrResetTokenInvalid)
	}

	if err := validateNewPassword(event.Password, event.PasswordConfirm, h.svc.cfg.MinPasswordLength); err != nil {
		return nil, err
	}

	hash := HashResetToken(token)
	user, err := h.svc.store.FindByResetHash(ctx, hash, h.svc.clock.Now())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			h.svc.emit(ctx, ActivityEventPasswordResetFailure, "", map[string]any{"reason": "unknown_or_expired"})
			return nil, oops.Code(textCodeResetToken).Wrap(ErrResetTokenInvalid)
		}
		return nil, err
	}

	if !user.Active {
		return nil, oops.Code(textCodeResetToken).With("user_id", user.ID.String()).Wrap(ErrResetTokenInvalid)
	}

	result, err := h.svc.commitPasswordChange(ctx, &passwordChange{
		user:     user,
		password: event.Password,
		criteria: []UpdateCriteria{WhereResetHash(hash)},
		event:    ActivityEventPasswordResetSuccess,
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// another request consumed the token between lookup and update
			return nil, oops.Code(textCodeResetToken).With("user_id", user.ID.String()).Wrap(ErrResetTokenInvalid)
		}
		return nil, err
	}
	return result, nil
}
