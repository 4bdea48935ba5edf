package gorm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/membersync/pkg/model"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Ensure RulesStore implements store.RulesStore
var _ store.RulesStore = (*RulesStore)(nil)

// RulesStore implements store.RulesStore using GORM
type RulesStore struct {
	db *gorm.DB
}

// NewRulesStore creates a new RulesStore
func NewRulesStore(db *gorm.DB) *RulesStore {
	return &RulesStore{db: db}
}

// Get retrieves the rule for a membership type and method.
func (s *RulesStore) Get(typeID int, method rule.Method) (*rule.Rule, error) {
	var row model.AssociationRule
	tx := s.db.Where("membership_type_id = ? AND method = ?", typeID, method.String()).First(&row)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrRuleNotFound
		}
		return nil, tx.Error
	}

	r, err := toRule(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// All returns every rule for a method keyed by membership type ID.
func (s *RulesStore) All(method rule.Method) (map[int]rule.Rule, error) {
	var rows []model.AssociationRule
	if err := s.db.Where("method = ?", method.String()).Order("membership_type_id").Find(&rows).Error; err != nil {
		return nil, err
	}

	rules := make(map[int]rule.Rule, len(rows))
	for _, row := range rows {
		r, err := toRule(row)
		if err != nil {
			return nil, err
		}
		rules[r.MembershipTypeID] = r
	}
	return rules, nil
}

// Save creates or replaces a rule.
func (s *RulesStore) Save(r rule.Rule) error {
	row := fromRule(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "membership_type_id"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_status_ids", "expiry_status_ids", "current_role", "expired_role", "updated_at"}),
	}).Create(&row).Error
}

// Delete removes the rule for a membership type and method.
func (s *RulesStore) Delete(typeID int, method rule.Method) error {
	tx := s.db.Where("membership_type_id = ? AND method = ?", typeID, method.String()).Delete(&model.AssociationRule{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrRuleNotFound
	}
	return nil
}

// Clear removes every rule for a method.
func (s *RulesStore) Clear(method rule.Method) error {
	return s.db.Where("method = ?", method.String()).Delete(&model.AssociationRule{}).Error
}

func toRule(row model.AssociationRule) (rule.Rule, error) {
	method, err := rule.MethodString(row.Method)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("rule for membership type %d: %w", row.MembershipTypeID, err)
	}
	current, err := model.SplitIDs(row.CurrentStatusIDs)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("rule for membership type %d: bad current statuses: %w", row.MembershipTypeID, err)
	}
	expired, err := model.SplitIDs(row.ExpiryStatusIDs)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("rule for membership type %d: bad expiry statuses: %w", row.MembershipTypeID, err)
	}

	if method == rule.MethodCapability {
		return rule.NewCapabilityRule(row.MembershipTypeID, current, expired), nil
	}
	return rule.NewRoleRule(row.MembershipTypeID, current, expired, deref(row.CurrentRole), deref(row.ExpiredRole)), nil
}

func fromRule(r rule.Rule) model.AssociationRule {
	row := model.AssociationRule{
		MembershipTypeID: r.MembershipTypeID,
		Method:           r.Method().String(),
		CurrentStatusIDs: model.JoinIDs(r.CurrentStatusIDs),
		ExpiryStatusIDs:  model.JoinIDs(r.ExpiryStatusIDs),
	}
	if roles, ok := r.Roles(); ok {
		row.CurrentRole = &roles.CurrentRole
		row.ExpiredRole = &roles.ExpiredRole
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
