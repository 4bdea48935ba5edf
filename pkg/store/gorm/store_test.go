package gorm

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

type Suite struct {
	suite.Suite
	DB   *gorm.DB
	mock sqlmock.Sqlmock
}

func (s *Suite) SetupTest() {
	var (
		db  *sql.DB
		err error
	)

	db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.DB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
}

// AfterTest checks that every expected statement ran
func (s *Suite) AfterTest(_, _ string) {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestGormStores(t *testing.T) {
	suite.Run(t, new(Suite))
}

var ruleColumns = []string{"membership_type_id", "method", "current_status_ids", "expiry_status_ids", "current_role", "expired_role", "updated_at"}

func (s *Suite) TestGetRoleRule() {
	s.mock.ExpectQuery(`SELECT \* FROM "association_rules" WHERE membership_type_id = \$1 AND method = \$2`).
		WithArgs(5, "role").
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(5, "role", "1,2", "3,4", "member", "expired_member", time.Now()))

	r, err := NewRulesStore(s.DB).Get(5, rule.MethodRole)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 5, r.MembershipTypeID)
	assert.Equal(s.T(), []int{1, 2}, r.CurrentStatusIDs)
	assert.Equal(s.T(), []int{3, 4}, r.ExpiryStatusIDs)
	assert.Equal(s.T(), rule.RoleEffect{CurrentRole: "member", ExpiredRole: "expired_member"}, r.Effect)
}

func (s *Suite) TestGetCapabilityRule() {
	s.mock.ExpectQuery(`SELECT \* FROM "association_rules" WHERE membership_type_id = \$1 AND method = \$2`).
		WithArgs(7, "capability").
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(7, "capability", "1", "3", nil, nil, time.Now()))

	r, err := NewRulesStore(s.DB).Get(7, rule.MethodCapability)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), rule.MethodCapability, r.Method())
}

func (s *Suite) TestGetMissingRule() {
	s.mock.ExpectQuery(`SELECT \* FROM "association_rules"`).
		WithArgs(9, "role").
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	_, err := NewRulesStore(s.DB).Get(9, rule.MethodRole)
	assert.True(s.T(), errors.Is(err, store.ErrRuleNotFound))
}

func (s *Suite) TestGetCorruptStatuses() {
	s.mock.ExpectQuery(`SELECT \* FROM "association_rules"`).
		WithArgs(5, "role").
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(5, "role", "1,x", "3", "member", "expired_member", time.Now()))

	_, err := NewRulesStore(s.DB).Get(5, rule.MethodRole)
	assert.Error(s.T(), err)
}

func (s *Suite) TestAll() {
	s.mock.ExpectQuery(`SELECT \* FROM "association_rules" WHERE method = \$1 ORDER BY membership_type_id`).
		WithArgs("role").
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(5, "role", "1,2", "3,4", "member", "expired_member", time.Now()).
			AddRow(6, "role", "1", "3", "gold", "lapsed_gold", time.Now()))

	rules, err := NewRulesStore(s.DB).All(rule.MethodRole)
	require.NoError(s.T(), err)
	require.Len(s.T(), rules, 2)
	assert.Equal(s.T(), rule.RoleEffect{CurrentRole: "gold", ExpiredRole: "lapsed_gold"}, rules[6].Effect)
}

func (s *Suite) TestSave() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO "association_rules" .* ON CONFLICT \("membership_type_id","method"\) DO UPDATE`).
		WithArgs(5, "role", "1,2", "3,4", "member", "expired_member", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := NewRulesStore(s.DB).Save(rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member"))
	assert.NoError(s.T(), err)
}

func (s *Suite) TestDelete() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "association_rules" WHERE membership_type_id = \$1 AND method = \$2`).
		WithArgs(5, "role").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	assert.NoError(s.T(), NewRulesStore(s.DB).Delete(5, rule.MethodRole))
}

func (s *Suite) TestDeleteMissing() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "association_rules"`).
		WithArgs(5, "capability").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := NewRulesStore(s.DB).Delete(5, rule.MethodCapability)
	assert.True(s.T(), errors.Is(err, store.ErrRuleNotFound))
}

func (s *Suite) TestClear() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "association_rules" WHERE method = \$1`).
		WithArgs("capability").
		WillReturnResult(sqlmock.NewResult(0, 3))
	s.mock.ExpectCommit()

	assert.NoError(s.T(), NewRulesStore(s.DB).Clear(rule.MethodCapability))
}

func (s *Suite) TestCursorGet() {
	s.mock.ExpectQuery(`SELECT \* FROM "batch_cursors" WHERE key = \$1`).
		WithArgs("membersync_batch_offset").
		WillReturnRows(sqlmock.NewRows([]string{"key", "offset", "updated_at"}).
			AddRow("membersync_batch_offset", 20, time.Now()))

	offset, ok, err := NewCursorStore(s.DB).Get("membersync_batch_offset")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), 20, offset)
}

func (s *Suite) TestCursorGetMissing() {
	s.mock.ExpectQuery(`SELECT \* FROM "batch_cursors" WHERE key = \$1`).
		WithArgs("membersync_batch_offset").
		WillReturnRows(sqlmock.NewRows([]string{"key", "offset", "updated_at"}))

	_, ok, err := NewCursorStore(s.DB).Get("membersync_batch_offset")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *Suite) TestCursorSetAndDelete() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO "batch_cursors" .* ON CONFLICT \("key"\) DO UPDATE`).
		WithArgs("membersync_batch_offset", 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "batch_cursors" WHERE key = \$1`).
		WithArgs("membersync_batch_offset").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	cursors := NewCursorStore(s.DB)
	require.NoError(s.T(), cursors.Set("membersync_batch_offset", 30))
	require.NoError(s.T(), cursors.Delete("membersync_batch_offset"))
}
