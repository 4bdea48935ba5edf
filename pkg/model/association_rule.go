package model

import (
	"strconv"
	"strings"
	"time"
)

// AssociationRule is the persisted form of a rule.Rule. Status ID sets are
// stored as comma separated lists.
type AssociationRule struct {
	MembershipTypeID int       `gorm:"column:membership_type_id;primaryKey"`
	Method           string    `gorm:"column:method;primaryKey"`
	CurrentStatusIDs string    `gorm:"column:current_status_ids;not null"`
	ExpiryStatusIDs  string    `gorm:"column:expiry_status_ids;not null"`
	CurrentRole      *string   `gorm:"column:current_role"`
	ExpiredRole      *string   `gorm:"column:expired_role"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (AssociationRule) TableName() string {
	return "association_rules"
}

// JoinIDs encodes a status ID set for storage.
func JoinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

// SplitIDs decodes a stored status ID set. Blank entries are skipped.
func SplitIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
