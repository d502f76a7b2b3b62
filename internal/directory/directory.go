// Package directory resolves users, reporting lines, and department
// membership from the shared user table.
package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvlong/workdesk/internal/models"
	"gorm.io/gorm"
)

// Directory answers the authorization questions the engine needs about
// users. Implementations must treat the underlying store as read-only.
type Directory interface {
	// IsAdmin reports whether the user carries the admin flag.
	IsAdmin(user string) (bool, error)

	// DirectManagerOf returns the user's direct manager code, or "" when
	// no manager is on file.
	DirectManagerOf(user string) (string, error)

	// MembersOf returns the codes of every active member of a department.
	MembersOf(department string) ([]string, error)
}

// SQL is the GORM-backed Directory over the users table.
type SQL struct {
	db *gorm.DB
}

// NewSQL returns a Directory reading from the given database.
func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

// IsAdmin reports whether the user carries the admin flag.
func (d *SQL) IsAdmin(user string) (bool, error) {
	var count int64
	if err := d.db.Model(&models.User{}).
		Where("code = ? AND admin = ?", strings.TrimSpace(user), true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("directory: is admin %s: %w", user, err)
	}
	return count > 0, nil
}

// DirectManagerOf returns the user's direct manager code, or "" when none.
func (d *SQL) DirectManagerOf(user string) (string, error) {
	var u models.User
	err := d.db.Select("manager").Where("code = ?", strings.TrimSpace(user)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("directory: manager of %s: %w", user, err)
	}
	return strings.TrimSpace(u.Manager), nil
}

// MembersOf returns the codes of every active member of a department.
func (d *SQL) MembersOf(department string) ([]string, error) {
	var codes []string
	if err := d.db.Model(&models.User{}).
		Where("department = ? AND active = ?", strings.TrimSpace(department), true).
		Order("code ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("directory: members of %s: %w", department, err)
	}
	return codes, nil
}

// Helper is one row of the eligible-helpers listing.
type Helper struct {
	Code      string
	ShortName string
}

// EligibleHelpers returns active users who can be addressed by a help call,
// ordered by short name. An empty department returns everyone.
func (d *SQL) EligibleHelpers(department string) ([]Helper, error) {
	q := d.db.Model(&models.User{}).Where("active = ?", true)
	if department != "" {
		q = q.Where("department = ?", strings.TrimSpace(department))
	}

	var users []models.User
	if err := q.Order("short_name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory: eligible helpers: %w", err)
	}

	helpers := make([]Helper, len(users))
	for i, u := range users {
		helpers[i] = Helper{Code: u.Code, ShortName: u.ShortName}
	}
	return helpers, nil
}

// IsSubordinate reports whether helper reports directly to supervisor, or
// supervisor is an admin. Used by the fan-out dispatcher to split delegated
// instructions from peer assistance requests.
func IsSubordinate(dir Directory, helper, supervisor string) (bool, error) {
	if helper == "" || supervisor == "" {
		return false, nil
	}
	admin, err := dir.IsAdmin(supervisor)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}
	manager, err := dir.DirectManagerOf(helper)
	if err != nil {
		return false, err
	}
	return manager != "" && strings.EqualFold(manager, strings.TrimSpace(supervisor)), nil
}
