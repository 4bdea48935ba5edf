package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/config"
	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/metrics"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	backend Backend
	cfg     *config.Config
	logger  *slog.Logger

	// components is built on first use so that configuration steps in the
	// background take effect.
	components *server.Components
	server     *ServerInstance

	memberships map[int]crm.Membership
	results     []reconcile.Result
	steps       []batch.Step
	lastErr     error
}

// NewStepsContext creates a new steps context
func NewStepsContext(b Backend) *StepsContext {
	return &StepsContext{
		backend:     b,
		cfg:         config.Default(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		memberships: make(map[int]crm.Membership),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.backend.Reset(ctx)
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.server != nil {
			s.server.Close()
		}
		return ctx, nil
	})

	// Configuration steps
	sc.Step(`^the sync method is "([^"]*)"$`, s.theSyncMethodIs)
	sc.Step(`^content restriction is enabled$`, s.contentRestrictionIsEnabled)
	sc.Step(`^a role rule for membership type (\d+) with current statuses "([^"]*)" and expired statuses "([^"]*)" granting "([^"]*)" or "([^"]*)"$`, s.aRoleRule)
	sc.Step(`^a capability rule for membership type (\d+) with current statuses "([^"]*)" and expired statuses "([^"]*)"$`, s.aCapabilityRule)

	// CRM steps
	sc.Step(`^contact (\d+) "([^"]*)" has a user account$`, s.contactHasAUserAccount)
	sc.Step(`^contact (\d+) "([^"]*)" has no user account$`, s.contactHasNoUserAccount)
	sc.Step(`^contact (\d+) has membership (\d+) of type (\d+) with status (\d+) ending "([^"]*)"$`, s.contactHasMembership)

	// Sync steps
	sc.Step(`^I sync contact (\d+)$`, s.iSyncContact)
	sc.Step(`^I simulate contact (\d+)$`, s.iSimulateContact)
	sc.Step(`^the CRM reports membership (\d+) as created$`, s.theCRMReportsMembershipCreated)
	sc.Step(`^membership (\d+) is deleted$`, s.membershipIsDeleted)
	sc.Step(`^membership (\d+) changes to type (\d+)$`, s.membershipChangesType)

	// Batch steps
	sc.Step(`^I run the batch with batch size (\d+)$`, s.iRunTheBatch)
	sc.Step(`^I run the batch with batch size (\d+) creating users$`, s.iRunTheBatchCreatingUsers)
	sc.Step(`^I run (\d+) batch steps? with batch size (\d+)$`, s.iRunBatchSteps)
	sc.Step(`^I stop the batch$`, s.iStopTheBatch)
	sc.Step(`^the batch should have taken (\d+) steps$`, s.theBatchShouldHaveTakenSteps)
	sc.Step(`^the batch status should be "([^"]*)" at offset (\d+)$`, s.theBatchStatusShouldBe)

	// Assertion steps
	sc.Step(`^contact (\d+) should have roles "([^"]*)"$`, s.contactShouldHaveRoles)
	sc.Step(`^contact (\d+) should have capabilities "([^"]*)"$`, s.contactShouldHaveCapabilities)
	sc.Step(`^contact (\d+) should have no user account$`, s.contactShouldHaveNoUserAccount)
	sc.Step(`^the results should classify membership (\d+) as "([^"]*)"$`, s.theResultsShouldClassify)
	sc.Step(`^the results should not mention membership (\d+)$`, s.theResultsShouldNotMention)
	sc.Step(`^no error should be reported$`, s.noErrorShouldBeReported)

	// HTTP steps
	sc.Step(`^the membersync server is running$`, s.theServerIsRunning)
	sc.Step(`^I POST "([^"]*)"$`, s.iPOST)
	sc.Step(`^I GET "([^"]*)"$`, s.iGET)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain '([^']*)'$`, s.theResponseShouldContain)
}

func (s *StepsContext) app() *server.Components {
	if s.components != nil {
		return s.components
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	dir := s.backend.Directory()
	rulesStore := s.backend.Rules()
	applier := effect.New(dir, s.cfg.EffectOptions(), s.logger, m)
	engine := reconcile.NewEngine(s.cfg.SyncMethod, rulesStore, applier, s.logger)
	aggregator := membership.New(s.backend.CRM(), rulesStore)

	s.components = &server.Components{
		Config: s.cfg,
		Rules:  rules.NewManager(rulesStore, s.logger, m),
		Coordinator: batch.NewCoordinator(s.backend.CRM(), dir, aggregator, engine, s.backend.Cursors(), batch.Options{
			CursorKey: s.cfg.CursorKey,
			Logger:    s.logger,
			Recorders: []batch.Recorder{m},
		}),
		Engine:     engine,
		Aggregator: aggregator,
		Hooks:      reconcile.NewHooks(engine, aggregator, dir, reconcile.NewSnapshots(s.cfg.SnapshotDuration()), s.logger),
		Directory:  dir,
		Gatherer:   registry,
	}
	return s.components
}

// Configuration steps

func (s *StepsContext) theSyncMethodIs(method string) error {
	if s.components != nil {
		return errors.New("sync method must be set before the first sync")
	}
	m, err := rule.MethodString(method)
	if err != nil {
		return err
	}
	s.cfg.SyncMethod = m
	return nil
}

func (s *StepsContext) contentRestrictionIsEnabled() error {
	if s.components != nil {
		return errors.New("content restriction must be enabled before the first sync")
	}
	s.cfg.ContentRestrictionEnabled = true
	return nil
}

func (s *StepsContext) aRoleRule(typeID int, current, expired, currentRole, expiredRole string) error {
	currentIDs, err := parseIDs(current)
	if err != nil {
		return err
	}
	expiredIDs, err := parseIDs(expired)
	if err != nil {
		return err
	}
	return s.app().Rules.Save(context.Background(), rule.NewRoleRule(typeID, currentIDs, expiredIDs, currentRole, expiredRole))
}

func (s *StepsContext) aCapabilityRule(typeID int, current, expired string) error {
	currentIDs, err := parseIDs(current)
	if err != nil {
		return err
	}
	expiredIDs, err := parseIDs(expired)
	if err != nil {
		return err
	}
	return s.app().Rules.Save(context.Background(), rule.NewCapabilityRule(typeID, currentIDs, expiredIDs))
}

// CRM steps

func contactFor(id int, name string) crm.Contact {
	first, last, _ := strings.Cut(name, " ")
	return crm.Contact{
		ID:          id,
		DisplayName: name,
		FirstName:   first,
		LastName:    last,
		Email:       strings.ToLower(first) + "@example.org",
	}
}

func (s *StepsContext) contactHasAUserAccount(id int, name string) error {
	ctx := context.Background()
	contact := contactFor(id, name)
	if err := s.backend.PutContact(ctx, contact); err != nil {
		return err
	}

	dir := s.backend.Directory()
	u, err := dir.CreateUser(ctx, contact)
	if err != nil {
		return err
	}
	linker, ok := dir.(directory.Linker)
	if !ok {
		return errors.New("directory cannot link contacts")
	}
	return linker.LinkContact(ctx, id, u.ID)
}

func (s *StepsContext) contactHasNoUserAccount(id int, name string) error {
	return s.backend.PutContact(context.Background(), contactFor(id, name))
}

func (s *StepsContext) contactHasMembership(contactID, id, typeID, statusID int, ending string) error {
	end, err := time.Parse(time.DateOnly, ending)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", ending, err)
	}
	m := crm.Membership{
		ID:        id,
		ContactID: contactID,
		TypeID:    typeID,
		StatusID:  statusID,
		StartDate: end.AddDate(-1, 0, 0),
		EndDate:   end,
	}
	s.memberships[id] = m
	return s.backend.PutMembership(context.Background(), m)
}

// Sync steps

func (s *StepsContext) iSyncContact(contactID int) error {
	ctx := context.Background()
	c := s.app()

	memberships, err := c.Aggregator.ForContact(ctx, contactID, c.Engine.Method())
	if err != nil {
		return err
	}
	u, err := c.Directory.FindUserByContact(ctx, contactID)
	if err != nil {
		return err
	}
	s.results, s.lastErr = c.Engine.Sync(ctx, *u, memberships)
	return nil
}

func (s *StepsContext) iSimulateContact(contactID int) error {
	ctx := context.Background()
	c := s.app()

	memberships, err := c.Aggregator.ForContact(ctx, contactID, c.Engine.Method())
	if err != nil {
		return err
	}
	s.results, s.lastErr = c.Engine.Simulate(ctx, memberships)
	return nil
}

func (s *StepsContext) membership(id int) (crm.Membership, error) {
	m, ok := s.memberships[id]
	if !ok {
		return crm.Membership{}, fmt.Errorf("membership %d was never created", id)
	}
	return m, nil
}

func (s *StepsContext) theCRMReportsMembershipCreated(id int) error {
	m, err := s.membership(id)
	if err != nil {
		return err
	}
	s.results, s.lastErr = s.app().Hooks.MembershipSaved(context.Background(), m)
	return nil
}

func (s *StepsContext) membershipIsDeleted(id int) error {
	ctx := context.Background()
	m, err := s.membership(id)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteMembership(ctx, id); err != nil {
		return err
	}
	delete(s.memberships, id)
	s.results, s.lastErr = s.app().Hooks.MembershipDeleted(ctx, m)
	return nil
}

func (s *StepsContext) membershipChangesType(id, typeID int) error {
	ctx := context.Background()
	before, err := s.membership(id)
	if err != nil {
		return err
	}
	hooks := s.app().Hooks
	hooks.MembershipBeforeUpdate(before)

	after := before
	after.TypeID = typeID
	if err := s.backend.PutMembership(ctx, after); err != nil {
		return err
	}
	s.memberships[id] = after
	s.results, s.lastErr = hooks.MembershipUpdated(ctx, after)
	return nil
}

// Batch steps

func (s *StepsContext) runBatch(p batch.Params) error {
	s.steps = nil
	s.lastErr = s.app().Coordinator.Run(context.Background(), p, func(step batch.Step) {
		s.steps = append(s.steps, step)
	})
	return nil
}

func (s *StepsContext) iRunTheBatch(batchSize int) error {
	return s.runBatch(batch.Params{BatchSize: batchSize})
}

func (s *StepsContext) iRunTheBatchCreatingUsers(batchSize int) error {
	return s.runBatch(batch.Params{BatchSize: batchSize, CreateUsers: true})
}

func (s *StepsContext) iRunBatchSteps(n, batchSize int) error {
	s.steps = nil
	for i := 0; i < n; i++ {
		step, err := s.app().Coordinator.Step(context.Background(), batch.Params{BatchSize: batchSize})
		if err != nil {
			return err
		}
		s.steps = append(s.steps, step)
	}
	return nil
}

func (s *StepsContext) iStopTheBatch() error {
	return s.app().Coordinator.Stop(context.Background())
}

func (s *StepsContext) theBatchShouldHaveTakenSteps(n int) error {
	if len(s.steps) != n {
		return fmt.Errorf("expected %d steps, got %d", n, len(s.steps))
	}
	last := s.steps[len(s.steps)-1]
	if !last.Finished {
		return fmt.Errorf("expected the last step to finish the run, got %+v", last)
	}
	return nil
}

func (s *StepsContext) theBatchStatusShouldBe(state string, offset int) error {
	status, err := s.app().Coordinator.Status(context.Background())
	if err != nil {
		return err
	}
	if status.State.String() != state {
		return fmt.Errorf("expected state %q, got %q", state, status.State)
	}
	if status.Offset != offset {
		return fmt.Errorf("expected offset %d, got %d", offset, status.Offset)
	}
	return nil
}

// Assertion steps

func (s *StepsContext) userFor(contactID int) (directory.User, error) {
	u, err := s.backend.Directory().FindUserByContact(context.Background(), contactID)
	if err != nil {
		return directory.User{}, fmt.Errorf("contact %d: %w", contactID, err)
	}
	return *u, nil
}

func expectNames(what string, got []string, want string) error {
	var expected []string
	for _, name := range strings.Split(want, ",") {
		if name = strings.TrimSpace(name); name != "" {
			expected = append(expected, name)
		}
	}
	got = slices.Clone(got)
	slices.Sort(got)
	slices.Sort(expected)
	if !slices.Equal(got, expected) {
		return fmt.Errorf("expected %s %v, got %v", what, expected, got)
	}
	return nil
}

func (s *StepsContext) contactShouldHaveRoles(contactID int, want string) error {
	u, err := s.userFor(contactID)
	if err != nil {
		return err
	}
	roles, err := s.backend.Directory().Roles(context.Background(), u)
	if err != nil {
		return err
	}
	return expectNames("roles", roles, want)
}

func (s *StepsContext) contactShouldHaveCapabilities(contactID int, want string) error {
	u, err := s.userFor(contactID)
	if err != nil {
		return err
	}
	caps, err := s.backend.Directory().Capabilities(context.Background(), u)
	if err != nil {
		return err
	}
	return expectNames("capabilities", caps, want)
}

func (s *StepsContext) contactShouldHaveNoUserAccount(contactID int) error {
	_, err := s.backend.Directory().FindUserByContact(context.Background(), contactID)
	if !errors.Is(err, directory.ErrUserNotFound) {
		return fmt.Errorf("expected no user for contact %d, got error %v", contactID, err)
	}
	return nil
}

func (s *StepsContext) theResultsShouldClassify(id int, flag string) error {
	for _, r := range s.results {
		if r.MembershipID == id {
			if r.Flag.String() != flag {
				return fmt.Errorf("membership %d classified %q, want %q", id, r.Flag, flag)
			}
			return nil
		}
	}
	return fmt.Errorf("membership %d not in results %+v", id, s.results)
}

func (s *StepsContext) theResultsShouldNotMention(id int) error {
	for _, r := range s.results {
		if r.MembershipID == id {
			return fmt.Errorf("membership %d unexpectedly in results", id)
		}
	}
	return nil
}

func (s *StepsContext) noErrorShouldBeReported() error {
	if s.lastErr != nil {
		return s.lastErr
	}
	for _, r := range s.results {
		if r.Err != nil {
			return fmt.Errorf("membership %d failed: %w", r.MembershipID, r.Err)
		}
	}
	for _, step := range s.steps {
		for _, r := range step.Feedback {
			if r.Err != nil {
				return fmt.Errorf("contact %d failed: %w", r.ContactID, r.Err)
			}
		}
	}
	return nil
}

// HTTP steps

func (s *StepsContext) theServerIsRunning() error {
	s.server = StartServer(*s.app(), s.logger)
	return nil
}

func (s *StepsContext) iPOST(path string) error {
	if s.server == nil {
		return errors.New("server is not running")
	}
	return s.server.Do("POST", path)
}

func (s *StepsContext) iGET(path string) error {
	if s.server == nil {
		return errors.New("server is not running")
	}
	return s.server.Do("GET", path)
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.server.LastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.server.LastStatus, s.server.LastBody)
	}
	return nil
}

func (s *StepsContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(s.server.LastBody), text) {
		return fmt.Errorf("expected response to contain %q, got %s", text, s.server.LastBody)
	}
	return nil
}

func parseIDs(list string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
