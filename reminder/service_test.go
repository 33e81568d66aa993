package reminder

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ordernudge/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory customer registry.
type fakeRepo struct {
	stores    []models.Store
	customers []models.Customer
	orders    map[uint]int64
	groups    map[string]uint

	groupSets map[uint]uint
	deleted   []uint

	customerQueries int
	orderQueries    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:    map[uint]int64{},
		groups:    map[string]uint{},
		groupSets: map[uint]uint{},
	}
}

func (r *fakeRepo) Stores(_ context.Context) ([]models.Store, error) {
	return r.stores, nil
}

func (r *fakeRepo) CustomersCreatedBetween(_ context.Context, storeID uint, start, end time.Time) ([]models.Customer, error) {
	r.customerQueries++
	var matched []models.Customer
	for _, c := range r.customers {
		if c.StoreID != storeID {
			continue
		}
		if c.CreatedAt.Before(start) || c.CreatedAt.After(end) {
			continue
		}
		matched = append(matched, c)
	}
	return matched, nil
}

func (r *fakeRepo) OrderCount(_ context.Context, customerID uint) (int64, error) {
	r.orderQueries++
	return r.orders[customerID], nil
}

func (r *fakeRepo) GroupIDByCode(_ context.Context, code string) (uint, bool, error) {
	id, ok := r.groups[code]
	return id, ok, nil
}

func (r *fakeRepo) SetCustomerGroup(_ context.Context, customerID, groupID uint) error {
	r.groupSets[customerID] = groupID
	return nil
}

func (r *fakeRepo) DeleteCustomer(_ context.Context, customerID uint) error {
	r.deleted = append(r.deleted, customerID)
	return nil
}

// fakeMailer records every Send batch.
type fakeMailer struct {
	batches [][]Message
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, messages []Message) error {
	m.batches = append(m.batches, messages)
	return m.sendErr
}

func (m *fakeMailer) allMessages() []Message {
	var all []Message
	for _, batch := range m.batches {
		all = append(all, batch...)
	}
	return all
}

var testNow = time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)

func testStore() models.Store {
	return models.Store{Model: gorm.Model{ID: 1}, Code: "default", Name: "Default Store"}
}

func testCustomer(id uint, email string, createdDaysAgo int) models.Customer {
	return models.Customer{
		Model: gorm.Model{
			ID:        id,
			CreatedAt: testNow.AddDate(0, 0, -createdDaysAgo),
		},
		StoreID:   1,
		Email:     email,
		FirstName: "Ana",
		LastName:  "Horvat",
	}
}

func baseSettings() map[string]string {
	return map[string]string{
		PathEnabled:      "1",
		PathCount:        "3",
		PathIntervalDays: "10",
		PathSenderName:   "Store Team",
		PathSenderEmail:  "team@store.example",
	}
}

func newTestService(repo *fakeRepo, mailer *fakeMailer, values map[string]string) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)

	provider := &fakeSettings{values: map[uint]map[string]string{1: values}}
	svc := NewService(repo, mailer, provider, log)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestRunStoreRegularStage(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail, baseSettings())

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	require.Len(t, mail.batches, 1)
	msgs := mail.batches[0]
	require.Len(t, msgs, 1)

	assert.Equal(t, "ana@example.com", msgs[0].To.Email)
	assert.Equal(t, "Ana Horvat", msgs[0].To.Name)
	assert.Equal(t, "order_reminder", msgs[0].TemplateID)
	assert.Equal(t, 10, msgs[0].Params.ReminderDays)
	assert.Equal(t, 30, msgs[0].Params.ReminderLimit)
	assert.Equal(t, "team@store.example", msgs[0].FromEmail)
	assert.Empty(t, msgs[0].Bcc)

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, repo.groupSets)
}

func TestRunStoreNoDatesMeansNoRegistryCalls(t *testing.T) {
	for _, values := range []map[string]string{
		{PathEnabled: "1", PathCount: "0", PathIntervalDays: "10", PathSenderEmail: "team@store.example"},
		{PathEnabled: "1", PathCount: "3", PathIntervalDays: "0", PathSenderEmail: "team@store.example"},
	} {
		repo := newFakeRepo()
		repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
		mail := &fakeMailer{}
		svc := newTestService(repo, mail, values)

		report, err := svc.RunStore(context.Background(), testStore())
		require.NoError(t, err)
		assert.Zero(t, repo.customerQueries)
		assert.Zero(t, repo.orderQueries)
		assert.Empty(t, mail.batches)
		assert.Zero(t, report.Sent)
	}
}

func TestRunStoreDisabled(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail, map[string]string{PathEnabled: "0"})

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)
	assert.Zero(t, repo.customerQueries)
	assert.Empty(t, mail.batches)
	assert.Zero(t, report.Candidates)
}

func TestRunStoreSkipsCustomersWithOrders(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 30)}
	repo.orders[7] = 2
	repo.groups["never_ordered"] = 4
	mail := &fakeMailer{}

	values := baseSettings()
	values[PathTerminalAction] = "delete"
	svc := newTestService(repo, mail, values)

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	assert.Empty(t, mail.batches)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Sent)
	// No disposition either, even though this was the terminal date.
	assert.Empty(t, repo.deleted)
}

func TestRunStoreTerminalMoveGroup(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 30)}
	repo.groups["never_ordered"] = 4
	mail := &fakeMailer{}

	values := baseSettings()
	values[PathTerminalAction] = "move_group"
	values[PathMoveGroup] = "never_ordered"
	svc := newTestService(repo, mail, values)

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	require.Len(t, mail.batches, 1)
	assert.Equal(t, "order_reminder_final", mail.batches[0][0].TemplateID)
	assert.Equal(t, 30, mail.batches[0][0].Params.ReminderDays)

	assert.Equal(t, uint(4), repo.groupSets[7])
	assert.Equal(t, 1, report.Moved)
	assert.Empty(t, repo.deleted)
}

func TestRunStoreTerminalMoveGroupUnresolvable(t *testing.T) {
	for _, groupName := range []string{"", "ghost_group"} {
		repo := newFakeRepo()
		repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 30)}
		mail := &fakeMailer{}

		values := baseSettings()
		values[PathTerminalAction] = "move_group"
		values[PathMoveGroup] = groupName
		svc := newTestService(repo, mail, values)

		report, err := svc.RunStore(context.Background(), testStore())
		require.NoError(t, err, "unresolvable group must not fail the run")

		// The reminder still goes out; only the move is skipped.
		assert.Len(t, mail.batches, 1)
		assert.Empty(t, repo.groupSets)
		assert.Zero(t, report.Moved)
	}
}

func TestRunStoreTerminalDelete(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 30)}
	mail := &fakeMailer{}

	values := baseSettings()
	values[PathTerminalAction] = "delete"
	svc := newTestService(repo, mail, values)

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	assert.Equal(t, []uint{7}, repo.deleted)
	assert.Equal(t, 1, report.Deleted)
}

func TestRunStoreTerminalNone(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 30)}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail, baseSettings())

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	assert.Len(t, mail.batches, 1)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, repo.groupSets)
	assert.Zero(t, report.Moved)
	assert.Zero(t, report.Deleted)
}

func TestRunStoreCopyFanOut(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
	mail := &fakeMailer{}

	values := baseSettings()
	values[PathCopyTo] = "sales@store.example,owner@store.example"
	values[PathCopyMethod] = "copy"
	svc := newTestService(repo, mail, values)

	_, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	msgs := mail.allMessages()
	require.Len(t, msgs, 3)

	assert.Equal(t, "ana@example.com", msgs[0].To.Email)
	assert.Equal(t, "sales@store.example", msgs[1].To.Email)
	assert.Equal(t, "owner@store.example", msgs[2].To.Email)
	for _, msg := range msgs {
		assert.Empty(t, msg.Bcc)
		assert.Equal(t, "order_reminder", msg.TemplateID)
		assert.Equal(t, 10, msg.Params.ReminderDays)
		assert.Equal(t, 30, msg.Params.ReminderLimit)
	}
}

func TestRunStoreBccFanOut(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
	mail := &fakeMailer{}

	values := baseSettings()
	values[PathCopyTo] = "sales@store.example,owner@store.example"
	values[PathCopyMethod] = "bcc"
	svc := newTestService(repo, mail, values)

	_, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	msgs := mail.allMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.com", msgs[0].To.Email)
	assert.Equal(t, []string{"sales@store.example", "owner@store.example"}, msgs[0].Bcc)
}

func TestRunStoreRerunResendsToStillEligible(t *testing.T) {
	// No suppression state exists: rerunning without new orders re-sends
	// to the same still-eligible customers. Expected behavior, not a bug.
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 20)}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail, baseSettings())

	for i := 0; i < 2; i++ {
		report, err := svc.RunStore(context.Background(), testStore())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	}
	assert.Len(t, mail.batches, 2)

	// Once the customer orders, reruns stop mailing them.
	repo.orders[7] = 1
	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Len(t, mail.batches, 2)
}

func TestRunStoreSendFailureStillDisposesAndContinues(t *testing.T) {
	repo := newFakeRepo()
	repo.customers = []models.Customer{
		testCustomer(7, "ana@example.com", 30),
		testCustomer(8, "ivan@example.com", 30),
	}
	mail := &fakeMailer{sendErr: errors.New("smtp unavailable")}

	values := baseSettings()
	values[PathTerminalAction] = "delete"
	svc := newTestService(repo, mail, values)

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err, "send failures must not abort the batch")

	assert.Equal(t, 2, report.SendFailures)
	assert.Zero(t, report.Sent)
	// Disposition is applied after dispatch is attempted, regardless of the
	// send outcome.
	assert.Equal(t, []uint{7, 8}, repo.deleted)
}

func TestRunAcrossStores(t *testing.T) {
	repo := newFakeRepo()
	repo.stores = []models.Store{
		testStore(),
		{Model: gorm.Model{ID: 2}, Code: "eu", Name: "EU Store"},
	}
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 10)}
	mail := &fakeMailer{}

	log := logrus.New()
	log.SetOutput(io.Discard)
	provider := &fakeSettings{values: map[uint]map[string]string{
		1: baseSettings(),
		2: {PathEnabled: "0"},
	}}
	svc := NewService(repo, mail, provider, log)
	svc.Now = func() time.Time { return testNow }

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stores)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, mail.batches, 1)
}

func TestRunStoreCustomerMatchesAtMostOneWindow(t *testing.T) {
	// A fixed creation timestamp falls in exactly one stage's window, so a
	// customer can never be processed twice within one run.
	repo := newFakeRepo()
	repo.customers = []models.Customer{testCustomer(7, "ana@example.com", 20)}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail, baseSettings())

	report, err := svc.RunStore(context.Background(), testStore())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	require.Len(t, mail.batches, 1)
	assert.Equal(t, 20, mail.batches[0][0].Params.ReminderDays)
}
