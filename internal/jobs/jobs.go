// Package jobs stores and queries job applications.
package jobs

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/database"
)

// Application statuses, from best to worst outcome. Listings sort by this
// priority so live opportunities surface first.
const (
	StatusOffer         = "offer"
	StatusInterview     = "interview"
	StatusPreIntScreen  = "pre_int_screen"
	StatusPending       = "pending"
	StatusContacted     = "contacted"
	StatusNotProceeding = "not_proceeding"
)

// Application methods record where the lead came from.
const (
	MethodLinkedInSearch     = "lkpsearch"
	MethodCommunitySlack     = "cislack"
	MethodLinkedInSuggestion = "lkjobsug"
	MethodInformal           = "inform"
	MethodIrishJobs          = "irishjobs.ie"
)

// ValidStatus reports whether s is a known application status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOffer, StatusInterview, StatusPreIntScreen, StatusPending, StatusContacted, StatusNotProceeding:
		return true
	}
	return false
}

// ValidMethod reports whether m is a known application method.
func ValidMethod(m string) bool {
	switch m {
	case MethodLinkedInSearch, MethodCommunitySlack, MethodLinkedInSuggestion, MethodInformal, MethodIrishJobs:
		return true
	}
	return false
}

// Application is one tracked job application.
type Application struct {
	ID           int       `json:"id"`
	Organisation string    `json:"organisation"`
	Role         string    `json:"role"`
	Location     string    `json:"location"`
	URL          string    `json:"url"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	AppliedAt    time.Time `json:"applied_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactedCounts summarizes application volume for the dashboard.
type ContactedCounts struct {
	LastWeek     int `json:"last_week"`
	LastTwoWeeks int `json:"last_two_weeks"`
	LastMonth    int `json:"last_month"`
}

// Repo persists applications.
type Repo struct {
	db *database.DB
}

// NewRepo creates an application repository.
func NewRepo(db *database.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts an application. An existing application for the same
// organisation and role (case-insensitive) is rejected as a duplicate; a
// unique index backs the pre-check, so concurrent creates cannot both land.
func (r *Repo) Create(ctx context.Context, app *Application) error {
	if app.Organisation == "" || app.Role == "" {
		return errors.ValidationError("organisation and role are required")
	}
	if app.Status == "" {
		app.Status = StatusPending
	}
	if !ValidStatus(app.Status) {
		return errors.ValidationError("unknown application status: " + app.Status)
	}
	if app.Method != "" && !ValidMethod(app.Method) {
		return errors.ValidationError("unknown application method: " + app.Method)
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}

	var existing int
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT COUNT(*) FROM job_applications WHERE LOWER(organisation) = LOWER(?) AND LOWER(role) = LOWER(?)`),
		app.Organisation, app.Role).Scan(&existing)
	if err != nil {
		return errors.InternalError("failed to check for duplicate application", err)
	}
	if existing > 0 {
		return errors.DuplicateError("application for this organisation and role")
	}

	query := r.db.Rebind(`INSERT INTO job_applications
		(organisation, role, location, url, method, status, notes, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	if r.db.IsPostgres() {
		err = r.db.QueryRowContext(ctx, query+" RETURNING id",
			app.Organisation, app.Role, app.Location, app.URL,
			app.Method, app.Status, app.Notes, app.AppliedAt).Scan(&app.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.DuplicateError("application for this organisation and role")
			}
			return errors.InternalError("failed to create application", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query,
		app.Organisation, app.Role, app.Location, app.URL,
		app.Method, app.Status, app.Notes, app.AppliedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.DuplicateError("application for this organisation and role")
		}
		return errors.InternalError("failed to create application", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.InternalError("failed to get last insert id", err)
	}
	app.ID = int(id)
	return nil
}

// isUniqueViolation matches the drivers' unique-index error text. The SQLite
// driver reports "UNIQUE constraint failed", PostgreSQL "duplicate key value
// violates unique constraint".
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

const selectColumns = `id, organisation, role, location, url, method, status, notes, applied_at, created_at, updated_at`

// statusPriority orders listings so offers and interviews come first and
// dead applications last, newest first within each status.
const statusPriority = `CASE status
		WHEN 'offer' THEN 0
		WHEN 'interview' THEN 1
		WHEN 'pre_int_screen' THEN 2
		WHEN 'pending' THEN 3
		WHEN 'contacted' THEN 4
		ELSE 5
	END`

// Get returns one application by id.
func (r *Repo) Get(ctx context.Context, id int) (*Application, error) {
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM job_applications WHERE id = ?`)

	app := &Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.Organisation, &app.Role, &app.Location, &app.URL,
		&app.Method, &app.Status, &app.Notes, &app.AppliedAt, &app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("application")
	}
	if err != nil {
		return nil, errors.InternalError("failed to get application", err)
	}

	return app, nil
}

// List returns all applications in status-priority order.
func (r *Repo) List(ctx context.Context) ([]*Application, error) {
	query := `SELECT ` + selectColumns + ` FROM job_applications
		ORDER BY ` + statusPriority + `, applied_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.InternalError("failed to list applications", err)
	}
	defer rows.Close()

	var apps []*Application
	for rows.Next() {
		app := &Application{}
		err := rows.Scan(
			&app.ID, &app.Organisation, &app.Role, &app.Location, &app.URL,
			&app.Method, &app.Status, &app.Notes, &app.AppliedAt, &app.CreatedAt, &app.UpdatedAt)
		if err != nil {
			return nil, errors.InternalError("failed to scan application", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// Update rewrites an application's mutable fields.
func (r *Repo) Update(ctx context.Context, app *Application) error {
	if !ValidStatus(app.Status) {
		return errors.ValidationError("unknown application status: " + app.Status)
	}
	if app.Method != "" && !ValidMethod(app.Method) {
		return errors.ValidationError("unknown application method: " + app.Method)
	}

	query := r.db.Rebind(`UPDATE job_applications SET
		organisation = ?, role = ?, location = ?, url = ?, method = ?,
		status = ?, notes = ?, applied_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		app.Organisation, app.Role, app.Location, app.URL, app.Method,
		app.Status, app.Notes, app.AppliedAt, app.ID)
	if err != nil {
		return errors.InternalError("failed to update application", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.InternalError("failed to check update result", err)
	}
	if affected == 0 {
		return errors.NotFoundError("application")
	}
	return nil
}

// Delete removes an application.
func (r *Repo) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM job_applications WHERE id = ?`), id)
	if err != nil {
		return errors.InternalError("failed to delete application", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.InternalError("failed to check delete result", err)
	}
	if affected == 0 {
		return errors.NotFoundError("application")
	}
	return nil
}

// AppliedSince counts applications made at or after cutoff.
func (r *Repo) AppliedSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT COUNT(*) FROM job_applications WHERE applied_at >= ?`),
		cutoff).Scan(&count)
	if err != nil {
		return 0, errors.InternalError("failed to count applications", err)
	}
	return count, nil
}

// Contacted summarizes application volume over the trailing week, fortnight,
// and month.
func (r *Repo) Contacted(ctx context.Context) (*ContactedCounts, error) {
	now := time.Now()

	counts := &ContactedCounts{}
	windows := []struct {
		cutoff time.Time
		dest   *int
	}{
		{now.AddDate(0, 0, -7), &counts.LastWeek},
		{now.AddDate(0, 0, -14), &counts.LastTwoWeeks},
		{now.AddDate(0, -1, 0), &counts.LastMonth},
	}

	for _, w := range windows {
		n, err := r.AppliedSince(ctx, w.cutoff)
		if err != nil {
			return nil, err
		}
		*w.dest = n
	}

	return counts, nil
}
