package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
)

// ParticipantRepository reads participant metadata used to decorate conversations.
type ParticipantRepository interface {
	BulkParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

type participantRow struct {
	models.Participant
	Roles pq.StringArray `db:"roles"`
}

// BulkParticipants fetches the known participants among ids. Unknown ids are
// simply absent from the result.
func (r *ParticipantRepo) BulkParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error) {
	out := make(map[string]models.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []participantRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, fullname, username, email, avatar, roles FROM participants WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errs.Infra("participants.bulk", err)
	}
	for _, row := range rows {
		p := row.Participant
		p.Roles = []string(row.Roles)
		out[p.ID] = p
	}
	return out, nil
}
