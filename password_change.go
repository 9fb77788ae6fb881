package auth

import (
	"context"
)

// passwordChange carries one password update through its steps.
type passwordChange struct {
	user     *User
	password string
	criteria []UpdateCriteria
	event    ActivityEventType
	result   *AuthResult
}

type preCommitStep func(pc *passwordChange) error

type postCommitStep func(ctx context.Context, pc *passwordChange) error

// commitPasswordChange runs the steps that must precede persistence, writes
// the changed columns in one update, then runs the steps that depend on the
// write having succeeded.
func (s *services) commitPasswordChange(ctx context.Context, pc *passwordChange) (*AuthResult, error) {
	pre := []preCommitStep{
		s.hashPasswordStep,
		s.recordPasswordChangeStep,
		clearResetTokenStep,
	}
	for _, step := range pre {
		if err := step(pc); err != nil {
			return nil, err
		}
	}

	columns := []string{
		ColumnPasswordHash,
		ColumnPasswordChangedAt,
		ColumnResetTokenHash,
		ColumnResetTokenExpiresAt,
	}
	if err := s.store.Update(ctx, pc.user, columns, pc.criteria...); err != nil {
		return nil, err
	}

	post := []postCommitStep{
		s.issueTokenStep,
		s.emitPasswordChangeStep,
	}
	for _, step := range post {
		if err := step(ctx, pc); err != nil {
			return nil, err
		}
	}
	return pc.result, nil
}

func (s *services) hashPasswordStep(pc *passwordChange) error {
	hash, err := s.hasher.Hash(pc.password)
	if err != nil {
		return err
	}
	pc.user.PasswordHash = hash
	return nil
}

func (s *services) recordPasswordChangeStep(pc *passwordChange) error {
	RecordPasswordChange(pc.user, s.clock.Now(), s.cfg.PasswordChangeSkew)
	return nil
}

func clearResetTokenStep(pc *passwordChange) error {
	ClearResetToken(pc.user)
	return nil
}

func (s *services) issueTokenStep(_ context.Context, pc *passwordChange) error {
	result, err := s.issue(pc.user)
	if err != nil {
		return err
	}
	pc.result = result
	return nil
}

func (s *services) emitPasswordChangeStep(ctx context.Context, pc *passwordChange) error {
	s.emit(ctx, pc.event, pc.user.ID.String(), nil)
	return nil
}
