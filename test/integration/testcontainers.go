package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/db"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/model"
	"github.com/doodlesbykumbi/membersync/pkg/store"
	gormstore "github.com/doodlesbykumbi/membersync/pkg/store/gorm"
)

// TestContext holds the resources of a PostgreSQL-backed run. It is a
// Backend whose CRM is the mirrored crm_* tables.
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	Container   testcontainers.Container
	DatabaseURL string

	client  *crm.MirrorClient
	dir     *directory.GormDirectory
	rules   *gormstore.RulesStore
	cursors *gormstore.CursorStore
}

var _ Backend = (*TestContext)(nil)

// NewTestContext starts a PostgreSQL container and migrates it with the
// migrations under db/migrations.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("membersync_test"),
		tcpostgres.WithUsername("membersync"),
		tcpostgres.WithPassword("membersync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(connStr, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	rawDB, err := database.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	log.Printf("PostgreSQL ready at %s", connStr)

	return &TestContext{
		DB:          database,
		RawDB:       rawDB,
		Container:   pgContainer,
		DatabaseURL: connStr,
		client:      crm.NewMirrorClient(database),
		dir:         directory.NewGormDirectory(database),
		rules:       gormstore.NewRulesStore(database),
		cursors:     gormstore.NewCursorStore(database),
	}, nil
}

func (tc *TestContext) Reset(ctx context.Context) error {
	return tc.DB.WithContext(ctx).Exec(`
		TRUNCATE crm_memberships, crm_membership_statuses, crm_contacts,
			contact_links, user_capabilities, user_roles, users,
			association_rules, batch_cursors
		RESTART IDENTITY CASCADE
	`).Error
}

func (tc *TestContext) PutContact(ctx context.Context, c crm.Contact) error {
	return tc.DB.WithContext(ctx).Exec(`
		INSERT INTO crm_contacts (id, display_name, first_name, last_name, email)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email
	`, c.ID, c.DisplayName, c.FirstName, c.LastName, c.Email).Error
}

func (tc *TestContext) PutMembership(ctx context.Context, m crm.Membership) error {
	return tc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status := model.MembershipStatus{
			ID:              m.StatusID,
			Name:            fmt.Sprintf("status %d", m.StatusID),
			IsCurrentMember: m.IsCurrentStatus,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&status).Error; err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO crm_memberships (id, contact_id, membership_type_id, status_id, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				contact_id = EXCLUDED.contact_id,
				membership_type_id = EXCLUDED.membership_type_id,
				status_id = EXCLUDED.status_id,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date
		`, m.ID, m.ContactID, m.TypeID, m.StatusID, nullDate(m.StartDate), nullDate(m.EndDate)).Error
	})
}

func (tc *TestContext) DeleteMembership(ctx context.Context, id int) error {
	return tc.DB.WithContext(ctx).Exec(`DELETE FROM crm_memberships WHERE id = ?`, id).Error
}

func (tc *TestContext) CRM() crm.Client                { return tc.client }
func (tc *TestContext) Directory() directory.Directory { return tc.dir }
func (tc *TestContext) Rules() store.RulesStore        { return tc.rules }
func (tc *TestContext) Cursors() store.CursorStore     { return tc.cursors }

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	paths := []string{
		"../..",
		"..",
		".",
	}

	for _, p := range paths {
		goMod := filepath.Join(p, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies every pending migration in migrationsDir.
func runMigrations(dbURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
