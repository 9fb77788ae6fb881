package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"ann@example.com" doc:"Account email."`
}

type InitializePasswordResetHandler struct {
	svc *services
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return oops.Code(textCodeInternal).Wrapf(ctx.Err(), "context cancelled during password reset initialization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	email := NormalizeEmail(event.Email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := h.svc.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			h.svc.logger.Debug("password reset requested for unknown account")
			return nil
		}
		return err
	}
	if !user.Active {
		h.svc.logger.Debug("password reset requested for inactive account %s", user.ID)
		return nil
	}

	ttl := h.svc.cfg.ResetTokenTTL
	token, err := GenerateResetToken(h.svc.clock.Now(), ttl)
	if err != nil {
		return err
	}

	ApplyResetToken(user, token)
	resetColumns := []string{ColumnResetTokenHash, ColumnResetTokenExpiresAt}
	if err := h.svc.store.Update(ctx, user, resetColumns); err != nil {
		return err
	}

	msg := Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %s)", humanDuration(ttl)),
		Body:    resetEmailBody(h.svc.cfg.ResetURLBase, token.Plaintext),
	}

	if err := h.svc.dispatcher.Send(ctx, msg); err != nil {
		h.svc.logger.Error("failed to deliver password reset to user %s: %v", user.ID, err)

		ClearResetToken(user)
		if rbErr := h.svc.store.Update(context.WithoutCancel(ctx), user, resetColumns); rbErr != nil {
			h.svc.logger.Error("failed to roll back password reset for user %s: %v", user.ID, rbErr)
		}

		h.svc.emit(ctx, ActivityEventDeliveryFailure, user.ID.String(), map[string]any{"error": err.Error()})
		return oops.Code(textCodeDelivery).With("user_id", user.ID.String()).Wrap(errors.Join(ErrDelivery, err))
	}

	h.svc.emit(ctx, ActivityEventPasswordResetRequest, user.ID.String(), nil)
	return nil
}

func resetEmailBody(base, token string) string {
	url := strings.TrimRight(base, "/") + "/" + token
	return fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
		"If you didn't forget your password, please ignore this email!", url)
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return d.String()
}
