package crm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/membersync/pkg/model"
)

// Ensure MirrorClient implements Client
var _ Client = (*MirrorClient)(nil)

// MirrorClient reads CRM records from tables replicated into the local
// database (crm_contacts, crm_memberships, crm_membership_statuses).
type MirrorClient struct {
	db *gorm.DB
}

// NewMirrorClient creates a new MirrorClient
func NewMirrorClient(db *gorm.DB) *MirrorClient {
	return &MirrorClient{db: db}
}

type membershipRow struct {
	model.Membership
	IsCurrentMember *bool `gorm:"column:is_current_member"`
}

// Memberships returns a page of memberships matching q.
func (c *MirrorClient) Memberships(ctx context.Context, q Query) ([]Membership, error) {
	tx := c.db.WithContext(ctx).
		Table("crm_memberships AS m").
		Select("m.*, s.is_current_member").
		Joins("LEFT JOIN crm_membership_statuses s ON s.id = m.status_id")

	if q.ContactID != 0 {
		tx = tx.Where("m.contact_id = ?", q.ContactID)
	}
	if q.TypeID != 0 {
		tx = tx.Where("m.membership_type_id = ?", q.TypeID)
	}
	if q.StatusID != 0 {
		tx = tx.Where("m.status_id = ?", q.StatusID)
	}

	tx = tx.Order("m.status_id ASC").Order("m.end_date ASC").Order("m.id ASC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var rows []membershipRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch memberships: %w", err)
	}

	memberships := make([]Membership, 0, len(rows))
	for _, row := range rows {
		m := Membership{
			ID:        row.ID,
			ContactID: row.ContactID,
			TypeID:    row.TypeID,
			StatusID:  row.StatusID,
		}
		if row.StartDate != nil {
			m.StartDate = *row.StartDate
		}
		if row.EndDate != nil {
			m.EndDate = *row.EndDate
		}
		if row.IsCurrentMember != nil {
			m.IsCurrentStatus = *row.IsCurrentMember
		}
		memberships = append(memberships, m)
	}
	return memberships, nil
}

// MembershipCount returns the total number of memberships.
func (c *MirrorClient) MembershipCount(ctx context.Context) (int, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&model.Membership{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return int(count), nil
}

// Contact returns a contact by ID.
func (c *MirrorClient) Contact(ctx context.Context, contactID int) (*Contact, error) {
	var row model.Contact
	if err := c.db.WithContext(ctx).Where("id = ?", contactID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to fetch contact %d: %w", contactID, err)
	}
	return &Contact{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Email:       row.Email,
	}, nil
}
