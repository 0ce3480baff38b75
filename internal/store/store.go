// Package store is the hand-written pgx data layer. Querier is the narrow
// interface handlers, the worker, and the suppression callback depend on;
// Queries is the pgxpool-backed implementation.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecordSendFailureParams struct {
	ID       int64
	IsFailed bool
	// Detail is a JSON array of bounce detail objects appended to the
	// record's existing details.
	Detail []byte
}

type UpsertDoNotContactParams struct {
	ContactID int64
	Channel   string
	ChannelID *int64
	Reason    string
	Comments  string
}

type CreateJobParams struct {
	JobType     string
	Payload     []byte
	MaxAttempts int32
}

type UpdateJobStatusParams struct {
	ID          uuid.UUID
	Status      string
	Error       pgtype.Text
	CompletedAt *time.Time
	RunAt       time.Time
}

// Querier is implemented by Queries and stubbed in tests.
type Querier interface {
	GetContactByID(ctx context.Context, id int64) (Contact, error)
	ListContactsByEmail(ctx context.Context, email string) ([]Contact, error)
	GetCampaign(ctx context.Context, id int64) (Campaign, error)
	GetSendRecordByHash(ctx context.Context, hashID string) (SendRecord, error)
	RecordSendFailure(ctx context.Context, arg RecordSendFailureParams) error
	UpsertDoNotContact(ctx context.Context, arg UpsertDoNotContactParams) (DoNotContact, error)
	ListDoNotContactByEmail(ctx context.Context, email string) ([]DoNotContact, error)
	CreateJob(ctx context.Context, arg CreateJobParams) (Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
	ClaimNextJob(ctx context.Context) (Job, error)
	UpdateJobStatus(ctx context.Context, arg UpdateJobStatusParams) (Job, error)
}

type Queries struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Queries {
	return &Queries{db: db}
}

var _ Querier = (*Queries)(nil)

func (q *Queries) GetContactByID(ctx context.Context, id int64) (Contact, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, email, created_at FROM contacts WHERE id = $1`, id)
	var c Contact
	err := row.Scan(&c.ID, &c.Email, &c.CreatedAt)
	return c, err
}

func (q *Queries) ListContactsByEmail(ctx context.Context, email string) ([]Contact, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, email, created_at FROM contacts WHERE email = $1 ORDER BY id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (q *Queries) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, name, from_address, from_name, reply_to FROM campaigns WHERE id = $1`, id)
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.FromAddress, &c.FromName, &c.ReplyTo)
	return c, err
}

func (q *Queries) GetSendRecordByHash(ctx context.Context, hashID string) (SendRecord, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, hash_id, campaign_id, contact_id, is_failed, bounce_details, created_at
		 FROM send_records WHERE hash_id = $1`, hashID)
	var r SendRecord
	err := row.Scan(&r.ID, &r.HashID, &r.CampaignID, &r.ContactID, &r.IsFailed, &r.BounceDetails, &r.CreatedAt)
	return r, err
}

func (q *Queries) RecordSendFailure(ctx context.Context, arg RecordSendFailureParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE send_records
		 SET is_failed = is_failed OR $2,
		     bounce_details = bounce_details || $3::jsonb
		 WHERE id = $1`,
		arg.ID, arg.IsFailed, arg.Detail)
	return err
}

func (q *Queries) UpsertDoNotContact(ctx context.Context, arg UpsertDoNotContactParams) (DoNotContact, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO do_not_contact (contact_id, channel, channel_id, reason, comments)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (contact_id, channel) DO UPDATE
		 SET channel_id = EXCLUDED.channel_id,
		     reason     = EXCLUDED.reason,
		     comments   = EXCLUDED.comments
		 RETURNING id, contact_id, channel, channel_id, reason, comments, created_at`,
		arg.ContactID, arg.Channel, arg.ChannelID, arg.Reason, arg.Comments)
	var d DoNotContact
	err := row.Scan(&d.ID, &d.ContactID, &d.Channel, &d.ChannelID, &d.Reason, &d.Comments, &d.CreatedAt)
	return d, err
}

func (q *Queries) ListDoNotContactByEmail(ctx context.Context, email string) ([]DoNotContact, error) {
	rows, err := q.db.Query(ctx,
		`SELECT d.id, d.contact_id, d.channel, d.channel_id, d.reason, d.comments, d.created_at
		 FROM do_not_contact d
		 JOIN contacts c ON c.id = d.contact_id
		 WHERE c.email = $1
		 ORDER BY d.id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []DoNotContact
	for rows.Next() {
		var d DoNotContact
		if err := rows.Scan(&d.ID, &d.ContactID, &d.Channel, &d.ChannelID, &d.Reason, &d.Comments, &d.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	return entries, rows.Err()
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (Job, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO jobs (id, job_type, payload, status, attempt, max_attempts, run_at)
		 VALUES ($1, $2, $3, 'pending', 0, $4, now())
		 RETURNING id, job_type, payload, status, attempt, max_attempts, run_at, error, completed_at, created_at`,
		uuid.New(), arg.JobType, arg.Payload, arg.MaxAttempts)
	return scanJob(row)
}

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, job_type, payload, status, attempt, max_attempts, run_at, error, completed_at, created_at
		 FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// ClaimNextJob atomically claims the oldest runnable pending job, bumping its
// attempt counter. Returns pgx.ErrNoRows when nothing is due.
func (q *Queries) ClaimNextJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE jobs SET status = 'running', attempt = attempt + 1
		 WHERE id = (
		     SELECT id FROM jobs
		     WHERE status = 'pending' AND run_at <= now()
		     ORDER BY run_at
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 RETURNING id, job_type, payload, status, attempt, max_attempts, run_at, error, completed_at, created_at`)
	return scanJob(row)
}

func (q *Queries) UpdateJobStatus(ctx context.Context, arg UpdateJobStatusParams) (Job, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE jobs SET status = $2, error = $3, completed_at = $4, run_at = $5
		 WHERE id = $1
		 RETURNING id, job_type, payload, status, attempt, max_attempts, run_at, error, completed_at, created_at`,
		arg.ID, arg.Status, arg.Error, arg.CompletedAt, arg.RunAt)
	return scanJob(row)
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Attempt, &j.MaxAttempts,
		&j.RunAt, &j.Error, &j.CompletedAt, &j.CreatedAt)
	return j, err
}
