package orch

import (
	"fmt"

	"github.com/dkeye/Lobby/internal/domain"
)

func invalidState(s *domain.Session, op string) error {
	return fmt.Errorf("%w: cannot %s lobby %s while %s", domain.ErrInvalidState, op, s.Code, s.State)
}

func notHost(s *domain.Session, id domain.MemberID, op string) error {
	return fmt.Errorf("%w: member %s is not the host of %s and cannot %s", domain.ErrForbidden, id, s.Code, op)
}

func noMember(s *domain.Session, id domain.MemberID) error {
	return fmt.Errorf("%w %q in lobby %s", domain.ErrMemberNotFound, id, s.Code)
}
