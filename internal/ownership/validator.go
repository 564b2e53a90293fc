package ownership

import (
	"messaging-service/internal/errs"
	"messaging-service/internal/models"
)

// Validator restricts edits and deletes to the original sender.
type Validator struct {
	// AllowAnonymous lets a request without any resolved actor through. Only for
	// deployments whose upstream provides no authenticated principal at all.
	AllowAnonymous bool
}

// Assert returns errs.ErrForbidden unless actorID is the sender of msg.
func (v Validator) Assert(msg models.Message, actorID string) error {
	if actorID == "" {
		if v.AllowAnonymous {
			return nil
		}
		return errs.ErrForbidden
	}
	if msg.SenderID != actorID {
		return errs.ErrForbidden
	}
	return nil
}
