package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"docsend/internal/model"
	"docsend/internal/repository"
)

const pgForeignKeyViolation = "23503"

// ProfilePostgres is a PostgreSQL implementation of repository.ProfileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ProfilePostgres struct {
	db *sql.DB
}

// NewProfilePostgres creates a new ProfilePostgres repository.
func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

const profileColumns = `p.id, p.sender_email, p.message, p.document_kind, p.document_url, p.storage_key,
		p.access_policy, p.filename, p.content_type, p.size, p.created_at`

const deliveryColumns = `d.id, d.recipient_email, d.mode, d.sent_at`

// Create inserts a new profile row and returns the stored record.
func (r *ProfilePostgres) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
		INSERT INTO profiles AS p (id, sender_email, message, document_kind, document_url, storage_key,
			access_policy, filename, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + profileColumns
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.SenderEmail,
		p.Message,
		string(p.Document.Kind),
		p.Document.URL,
		p.Document.StorageKey,
		string(p.Document.Policy),
		p.Document.Filename,
		p.Document.ContentType,
		p.Document.Size,
		p.CreatedAt,
	)
	var out model.Profile
	if err := row.Scan(profileDest(&out)...); err != nil {
		return nil, err
	}
	out.SentHistory = []model.DeliveryRecord{}
	return &out, nil
}

// FindByID fetches a single profile and its delivery history by the profile ID.
func (r *ProfilePostgres) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
		SELECT ` + profileColumns + `, ` + deliveryColumns + `
		FROM profiles p
		LEFT JOIN profile_deliveries d ON d.profile_id = p.id
		WHERE p.id = $1
		ORDER BY d.seq ASC
	`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, repository.ErrNotFound
	}
	return &profiles[0], nil
}

// List returns profiles newest first using LIMIT/OFFSET pagination and a total count.
func (r *ProfilePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Profile], error) {
	const qCount = `SELECT COUNT(*) FROM profiles`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// LIMIT NULL means no limit in PostgreSQL.
	var limit sql.NullInt64
	if pq.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(pq.Limit), Valid: true}
	}

	const qList = `
		SELECT ` + profileColumns + `, ` + deliveryColumns + `
		FROM (
			SELECT * FROM profiles
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		) p
		LEFT JOIN profile_deliveries d ON d.profile_id = p.id
		ORDER BY p.created_at DESC, p.id DESC, d.seq ASC
	`
	rows, err := r.db.QueryContext(ctx, qList, limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Profile]{
		Items: items,
		Total: total,
	}, nil
}

// AppendDelivery inserts one history row. The insert is the whole mutation: there is no
// read-modify-write of the profile, so concurrent appends cannot overwrite each other.
func (r *ProfilePostgres) AppendDelivery(ctx context.Context, profileID string, rec model.DeliveryRecord) error {
	const q = `
		INSERT INTO profile_deliveries (id, profile_id, recipient_email, mode, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, q, rec.ID, profileID, rec.RecipientEmail, string(rec.Mode), rec.SentAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func profileDest(p *model.Profile) []any {
	return []any{
		&p.ID,
		&p.SenderEmail,
		&p.Message,
		(*string)(&p.Document.Kind),
		&p.Document.URL,
		&p.Document.StorageKey,
		(*string)(&p.Document.Policy),
		&p.Document.Filename,
		&p.Document.ContentType,
		&p.Document.Size,
		&p.CreatedAt,
	}
}

// scanProfiles folds joined profile/delivery rows into profiles, keeping the row order of
// both the profiles and each profile's history.
func scanProfiles(rows *sql.Rows) ([]model.Profile, error) {
	items := make([]model.Profile, 0)
	index := make(map[string]int)

	for rows.Next() {
		var (
			p       model.Profile
			dID     sql.NullString
			dEmail  sql.NullString
			dMode   sql.NullString
			dSentAt sql.NullTime
		)
		dest := append(profileDest(&p), &dID, &dEmail, &dMode, &dSentAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		i, seen := index[p.ID]
		if !seen {
			p.SentHistory = []model.DeliveryRecord{}
			items = append(items, p)
			i = len(items) - 1
			index[p.ID] = i
		}
		if dID.Valid {
			items[i].SentHistory = append(items[i].SentHistory, model.DeliveryRecord{
				ID:             dID.String,
				RecipientEmail: dEmail.String,
				Mode:           model.DeliveryMode(dMode.String),
				SentAt:         dSentAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
