package reminder

import (
	"context"
	"fmt"
	"time"

	"ordernudge/models"

	"github.com/sirupsen/logrus"
)

// CustomerRepository is the slice of the customer registry the reminder job
// reads and, on the terminal stage, mutates.
type CustomerRepository interface {
	Stores(ctx context.Context) ([]models.Store, error)
	CustomersCreatedBetween(ctx context.Context, storeID uint, start, end time.Time) ([]models.Customer, error)
	OrderCount(ctx context.Context, customerID uint) (int64, error)
	GroupIDByCode(ctx context.Context, code string) (uint, bool, error)
	SetCustomerGroup(ctx context.Context, customerID, groupID uint) error
	DeleteCustomer(ctx context.Context, customerID uint) error
}

// Address is a single email recipient.
type Address struct {
	Email string
	Name  string
}

// TemplateParams is the data every reminder template is rendered with.
type TemplateParams struct {
	Customer      models.Customer
	ReminderDays  int
	ReminderLimit int
}

// Message is one outgoing reminder email spec.
type Message struct {
	To         Address
	Bcc        []string
	TemplateID string
	Params     TemplateParams
	FromName   string
	FromEmail  string
	StoreID    uint
}

// Mailer delivers composed reminder messages. Implementations report
// failures through the returned error; the service logs them and moves on
// to the next customer.
type Mailer interface {
	Send(ctx context.Context, messages []Message) error
}

// RunReport summarizes one reminder run.
type RunReport struct {
	Stores       int `json:"stores"`
	Candidates   int `json:"candidates"`
	Skipped      int `json:"skipped"`
	Sent         int `json:"sent"`
	SendFailures int `json:"send_failures"`
	Moved        int `json:"moved"`
	Deleted      int `json:"deleted"`
}

func (r *RunReport) add(other *RunReport) {
	r.Candidates += other.Candidates
	r.Skipped += other.Skipped
	r.Sent += other.Sent
	r.SendFailures += other.SendFailures
	r.Moved += other.Moved
	r.Deleted += other.Deleted
}

// Service runs the order reminder batch: for every store, find accounts
// created exactly interval, 2*interval, ... count*interval days ago, skip
// anyone who has ever ordered, email the rest, and apply the terminal
// disposition after the last stage's email.
type Service struct {
	Repo     CustomerRepository
	Mailer   Mailer
	Settings SettingProvider
	Logger   *logrus.Logger

	// Now supplies the run's reference instant; overridable in tests.
	Now func() time.Time
}

func NewService(repo CustomerRepository, mailer Mailer, settings SettingProvider, logger *logrus.Logger) *Service {
	return &Service{
		Repo:     repo,
		Mailer:   mailer,
		Settings: settings,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Run processes order reminders for every store in the registry. Fatal
// collaborator failures abort the run; per-customer problems are logged,
// counted and skipped.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	stores, err := s.Repo.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}

	report := &RunReport{}
	for _, store := range stores {
		storeReport, err := s.RunStore(ctx, store)
		if err != nil {
			return report, fmt.Errorf("store %s: %w", store.Code, err)
		}
		report.Stores++
		report.add(storeReport)
	}
	return report, nil
}

// RunStore processes order reminders for a single store.
func (s *Service) RunStore(ctx context.Context, store models.Store) (*RunReport, error) {
	log := s.Logger.WithField("store", store.Code)
	log.Info("Processing triggered...")

	report := &RunReport{}

	settings, err := LoadSettings(ctx, s.Settings, store.ID)
	if err != nil {
		return report, fmt.Errorf("loading settings: %w", err)
	}

	if !settings.Enabled {
		log.Info("Processing disabled.")
		return report, nil
	}
	log.Info("Processing enabled, continue...")

	if err := settings.Validate(); err != nil {
		return report, fmt.Errorf("invalid settings: %w", err)
	}

	loc, err := settings.Location()
	if err != nil {
		return report, fmt.Errorf("resolving timezone: %w", err)
	}
	log.Infof("%s timezone detected.", loc.String())
	log.Infof("%d reminders detected.", settings.Count)
	log.Infof("Reminder interval every %d days detected.", settings.IntervalDays)

	limit := settings.ReminderLimit()
	log.Infof("%d days detected as reminder limit.", limit)

	stages := BuildSchedule(s.Now(), loc, settings.Count, settings.IntervalDays)
	if len(stages) == 0 {
		log.Warn("Incorrect reminder count or interval config, aborting!")
		return report, nil
	}

	for _, stage := range stages {
		log.Infof("Processing -%d days, %s date...", stage.Days, stage.Date.Format("2006-01-02"))

		start, end := DayWindow(stage.Date, loc)
		customers, err := s.Repo.CustomersCreatedBetween(ctx, store.ID, start, end)
		if err != nil {
			return report, fmt.Errorf("querying customers for %s: %w", stage.Date.Format("2006-01-02"), err)
		}

		if len(customers) == 0 {
			log.Info("No customers, skip this date.")
			continue
		}

		for _, customer := range customers {
			report.Candidates++
			log.Infof("Processing %s <%s> account.", customer.Name(), customer.Email)

			orderCount, err := s.Repo.OrderCount(ctx, customer.ID)
			if err != nil {
				return report, fmt.Errorf("counting orders for customer %d: %w", customer.ID, err)
			}
			if orderCount > 0 {
				log.Info("Existing orders found, skip this account.")
				report.Skipped++
				continue
			}

			template := settings.TemplateFor(stage)
			if stage.Terminal {
				log.Info("Picked last email reminder template.")
			} else {
				log.Info("Picked regular email reminder template.")
			}

			messages := buildMessages(customer, settings, store.ID, template, stage.Days, limit)
			if err := s.Mailer.Send(ctx, messages); err != nil {
				log.WithError(err).Errorf("Failed to send reminder to %s.", customer.Email)
				report.SendFailures++
			} else {
				log.Infof("Reminder sent to %s.", customer.Email)
				report.Sent++
			}

			// Disposition runs once the dispatch has been attempted; it is
			// deliberately not gated on send success.
			if stage.Terminal {
				if err := s.applyDisposition(ctx, log, settings, customer, report); err != nil {
					return report, err
				}
			}
		}
	}

	return report, nil
}

// buildMessages composes the outgoing messages for one eligible customer.
// With copy method "bcc" the copy addresses ride along on the customer's
// message; with "copy" each address gets its own separate message carrying
// the same template and parameters.
func buildMessages(customer models.Customer, settings *Settings, storeID uint, template string, days, limit int) []Message {
	params := TemplateParams{
		Customer:      customer,
		ReminderDays:  days,
		ReminderLimit: limit,
	}

	primary := Message{
		To:         Address{Email: customer.Email, Name: customer.Name()},
		TemplateID: template,
		Params:     params,
		FromName:   settings.SenderName,
		FromEmail:  settings.SenderEmail,
		StoreID:    storeID,
	}
	if settings.CopyMethod == CopyMethodBCC {
		primary.Bcc = settings.CopyTo
	}

	messages := []Message{primary}
	if settings.CopyMethod == CopyMethodCopy {
		for _, addr := range settings.CopyTo {
			messages = append(messages, Message{
				To:         Address{Email: addr},
				TemplateID: template,
				Params:     params,
				FromName:   settings.SenderName,
				FromEmail:  settings.SenderEmail,
				StoreID:    storeID,
			})
		}
	}
	return messages
}

// applyDisposition performs the configured post-terminal-reminder account
// action. Unresolvable group names are a logged skip; registry failures are
// fatal to the run.
func (s *Service) applyDisposition(ctx context.Context, log *logrus.Entry, settings *Settings, customer models.Customer, report *RunReport) error {
	switch settings.TerminalAction {
	case ActionMoveGroup:
		if settings.MoveGroup == "" {
			log.Warn("Customer group name empty, could not move customer.")
			return nil
		}
		log.Infof("Move to customer group %s detected.", settings.MoveGroup)

		groupID, found, err := s.Repo.GroupIDByCode(ctx, settings.MoveGroup)
		if err != nil {
			return fmt.Errorf("resolving group %q: %w", settings.MoveGroup, err)
		}
		if !found {
			log.Warnf("Customer group %s doesn't exist, could not move customer.", settings.MoveGroup)
			return nil
		}

		if err := s.Repo.SetCustomerGroup(ctx, customer.ID, groupID); err != nil {
			return fmt.Errorf("moving customer %d to group %d: %w", customer.ID, groupID, err)
		}
		report.Moved++
		log.Info("Customer successfully moved.")

	case ActionDelete:
		log.Info("Delete account detected.")
		if err := s.Repo.DeleteCustomer(ctx, customer.ID); err != nil {
			return fmt.Errorf("deleting customer %d: %w", customer.ID, err)
		}
		report.Deleted++
		log.Info("Account deleted!")
	}
	return nil
}
