package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/mattn/go-sqlite3"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
	"github.com/pkg/errors"
)

// SQLStore keeps the documents in a single SQLite file.
type SQLStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "db.open")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	version, err := migrateDB(s.db)
	if err != nil {
		return err
	}
	log.Debugf("db.migrate: sqlite schema at version %d", version)
	return nil
}

func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func notFound(err error, code string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, code)
}

func (s *SQLStore) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (id, name, address) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.Address,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return errors.Wrap(err, "db.insert_user")
}

func (s *SQLStore) FindUser(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *SQLStore) FindUserByAddress(ctx context.Context, address string) (*model.User, error) {
	return s.findUser(ctx, "address", address)
}

func (s *SQLStore) findUser(ctx context.Context, column, value string) (*model.User, error) {
	u := model.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, address FROM user WHERE "+column+" = ?",
		value,
	).Scan(&u.ID, &u.Name, &u.Address)
	if err != nil {
		return nil, notFound(err, "db.get_user")
	}
	return &u, nil
}

func (s *SQLStore) CreateOrganization(ctx context.Context, o *model.Organization) error {
	o.ID = newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization (id, name, description, logo, owner_id)
		VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Description, o.Logo, o.Owner,
	)
	return errors.Wrap(err, "db.insert_organization")
}

func (s *SQLStore) FindOrganization(ctx context.Context, id string) (*model.Organization, error) {
	o := model.Organization{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, logo, owner_id
		FROM organization
		WHERE id = ?`,
		id,
	).Scan(&o.ID, &o.Name, &o.Description, &o.Logo, &o.Owner)
	if err != nil {
		return nil, notFound(err, "db.get_organization")
	}
	return &o, nil
}

func (s *SQLStore) ListOrganizations(ctx context.Context, owner string) ([]model.Organization, error) {
	query := "SELECT id, name, description, logo, owner_id FROM organization"
	var args []any
	if owner != "" {
		query += " WHERE owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_organizations")
	}
	defer rows.Close()

	orgs := []model.Organization{}
	for rows.Next() {
		o := model.Organization{}
		err = rows.Scan(&o.ID, &o.Name, &o.Description, &o.Logo, &o.Owner)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_organizations.scan")
		}
		orgs = append(orgs, o)
	}
	return orgs, errors.Wrap(rows.Err(), "db.get_organizations")
}

const surveyColumns = `
	id, user_id, name, slug, description, end_date, organization_id,
	metadata_cid, questions_cid, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row scanner) (*model.Survey, error) {
	var (
		sv      model.Survey
		endDate sql.NullTime
		org     sql.NullString
	)
	err := row.Scan(
		&sv.ID, &sv.User, &sv.Name, &sv.Slug, &sv.Description, &endDate, &org,
		&sv.MetadataCID, &sv.QuestionsCID, &sv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time.UTC()
		sv.EndDate = &t
	}
	sv.Organization = org.String
	sv.CreatedAt = sv.CreatedAt.UTC()
	return &sv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *SQLStore) CreateSurvey(ctx context.Context, sv *model.Survey) error {
	sv.ID = newID()
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO survey (`+surveyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.User, sv.Name, sv.Slug, sv.Description, nullTime(sv.EndDate), nullString(sv.Organization),
		sv.MetadataCID, sv.QuestionsCID, sv.CreatedAt,
	)
	return errors.Wrap(err, "db.insert_survey")
}

func (s *SQLStore) FindSurvey(ctx context.Context, id string) (*model.Survey, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+surveyColumns+" FROM survey WHERE id = ?", id)
	sv, err := scanSurvey(row)
	if err != nil {
		return nil, notFound(err, "db.get_survey")
	}
	return sv, nil
}

func (s *SQLStore) ListSurveys(ctx context.Context, filter model.SurveyFilter) ([]model.Survey, error) {
	var (
		where []string
		args  []any
	)
	if filter.User != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.User)
	}
	if filter.Organization != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.Organization)
	}

	query := "SELECT" + surveyColumns + " FROM survey"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_surveys.scan")
		}
		surveys = append(surveys, *sv)
	}
	return surveys, errors.Wrap(rows.Err(), "db.get_surveys")
}

func (s *SQLStore) UpdateSurvey(ctx context.Context, id string, upd model.SurveyUpdate) (*model.Survey, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey
		SET
			metadata_cid = ?,
			name = COALESCE(?, name),
			description = COALESCE(?, description)
		WHERE id = ?`,
		upd.MetadataCID,
		upd.Name,
		upd.Description,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.update_survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "db.update_survey.verify")
	}
	if n < 1 {
		return nil, ErrNotFound
	}
	return s.FindSurvey(ctx, id)
}

func (s *SQLStore) DeleteSurvey(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "DELETE FROM response WHERE survey_id = ?", id)
	if err != nil {
		return errors.Wrap(err, "db.delete_survey.responses")
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM survey WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "db.delete_survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_survey.verify")
	}
	if n < 1 {
		return ErrNotFound
	}

	return errors.Wrap(tx.Commit(), "db.delete_survey.commit")
}

func (s *SQLStore) CreateResponse(ctx context.Context, r *model.Response) error {
	r.ID = newID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO response (id, survey_id, user_id, response_cid, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Survey, r.User, r.ResponseCID, r.CreatedAt,
	)
	return errors.Wrap(err, "db.insert_response")
}

func (s *SQLStore) FindResponse(ctx context.Context, id string) (*model.Response, error) {
	r := model.Response{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, survey_id, user_id, response_cid, created_at
		FROM response
		WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Survey, &r.User, &r.ResponseCID, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "db.get_response")
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (s *SQLStore) ListResponses(ctx context.Context, surveyID string) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, user_id, response_cid, created_at
		FROM response
		WHERE survey_id = ?
		ORDER BY rowid`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r := model.Response{}
		err = rows.Scan(&r.ID, &r.Survey, &r.User, &r.ResponseCID, &r.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_responses.scan")
		}
		r.CreatedAt = r.CreatedAt.UTC()
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), "db.get_responses")
}
