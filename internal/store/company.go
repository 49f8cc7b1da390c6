package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trackerpro/trackerpro/internal/model"
)

type CompanyStore struct {
	db *sql.DB
}

func NewCompanyStore(db *sql.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

func scanCompany(scanner interface{ Scan(...any) error }) (*model.Company, error) {
	var c model.Company
	var oaDate sql.NullTime
	var interviewDate sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Role, &c.Location, &c.Compensation,
		&c.Deadline, &oaDate, &c.OAMode, &interviewDate, &c.InterviewMode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if oaDate.Valid {
		c.OADate = &oaDate.Time
	}
	if interviewDate.Valid {
		c.InterviewDate = &interviewDate.Time
	}
	return &c, nil
}

const companyCols = `id, user_id, name, role, location, compensation, deadline, oa_date, oa_mode, interview_date, interview_mode, created_at, updated_at`

func (s *CompanyStore) Create(userID int64, name, role, location, compensation string, deadline time.Time, oaDate *time.Time, oaMode string, interviewDate *time.Time, interviewMode string) (*model.Company, error) {
	result, err := s.db.Exec(
		`INSERT INTO companies (user_id, name, role, location, compensation, deadline, oa_date, oa_mode, interview_date, interview_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, name, role, location, compensation, deadline.UTC(),
		nullTime(oaDate), oaMode, nullTime(interviewDate), interviewMode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert company: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID looks a company up without an ownership filter. The scheduler
// uses it to resolve reminder references; handlers must check UserID.
func (s *CompanyStore) GetByID(id int64) (*model.Company, error) {
	row := s.db.QueryRow(`SELECT `+companyCols+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *CompanyStore) ListByUser(userID int64) ([]model.Company, error) {
	rows, err := s.db.Query(
		`SELECT `+companyCols+` FROM companies WHERE user_id = ? ORDER BY deadline ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

func (s *CompanyStore) Update(id int64, name, role, location, compensation string, deadline time.Time, oaDate *time.Time, oaMode string, interviewDate *time.Time, interviewMode string) (*model.Company, error) {
	_, err := s.db.Exec(
		`UPDATE companies SET name = ?, role = ?, location = ?, compensation = ?, deadline = ?, oa_date = ?, oa_mode = ?, interview_date = ?, interview_mode = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		name, role, location, compensation, deadline.UTC(),
		nullTime(oaDate), oaMode, nullTime(interviewDate), interviewMode, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}
	return s.GetByID(id)
}

func (s *CompanyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
