package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

type RegisterUserMessage struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type RegisterUserHandler struct {
	svc *services
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*AuthResult, error) {
	select {
	case <-ctx.Done():
		return nil, oops.Code(textCodeInternal).Wrapf(ctx.Err(), "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*AuthResult, error) {
	event.Name = strings.TrimSpace(event.Name)
	event.Email = NormalizeEmail(event.Email)
	if err := validateSignup(event, h.svc.cfg.MinPasswordLength); err != nil {
		return nil, err
	}

	hash, err := h.svc.hasher.Hash(event.Password)
	if err != nil {
		return nil, err
	}

	now := h.svc.clock.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Name:         event.Name,
		Email:        event.Email,
		Role:         RoleUser,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := h.svc.store.Insert(ctx, user)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.issue(created)
	if err != nil {
		return nil, err
	}

	h.svc.emit(ctx, ActivityEventSignup, created.ID.String(), nil)
	return result, nil
}
