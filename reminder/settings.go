package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
)

// Store-scoped setting paths consulted by the reminder job.
const (
	PathEnabled        = "order_reminder/enabled"
	PathCount          = "order_reminder/count"
	PathIntervalDays   = "order_reminder/interval_days"
	PathTerminalAction = "order_reminder/terminal_action"
	PathMoveGroup      = "order_reminder/move_group"
	PathSenderName     = "order_reminder/sender_name"
	PathSenderEmail    = "order_reminder/sender_email"
	PathTemplate       = "order_reminder/template"
	PathLastTemplate   = "order_reminder/last_template"
	PathCopyTo         = "order_reminder/copy_to"
	PathCopyMethod     = "order_reminder/copy_method"
	PathTimezone       = "general/timezone"
)

// TerminalAction is what happens to a customer account after the final
// reminder email.
type TerminalAction string

const (
	ActionNone      TerminalAction = "none"
	ActionMoveGroup TerminalAction = "move_group"
	ActionDelete    TerminalAction = "delete"
)

// CopyMethod controls how copy_to addresses receive reminders: blind-copied
// onto the customer's message, or each as their own separate message.
type CopyMethod string

const (
	CopyMethodBCC  CopyMethod = "bcc"
	CopyMethodCopy CopyMethod = "copy"
)

// SettingProvider resolves a store-scoped configuration value. The second
// return reports whether the value is set.
type SettingProvider interface {
	Setting(ctx context.Context, storeID uint, path string) (string, bool, error)
}

// Settings holds the parsed reminder configuration for one store.
type Settings struct {
	Enabled        bool
	Count          int            `validate:"min=0"`
	IntervalDays   int            `validate:"min=0"`
	TerminalAction TerminalAction `validate:"oneof=none move_group delete"`
	MoveGroup      string
	SenderName     string
	SenderEmail    string `validate:"required,email"`
	Template       string `validate:"required"`
	LastTemplate   string `validate:"required"`
	CopyTo         []string
	CopyMethod     CopyMethod `validate:"oneof=bcc copy"`
	Timezone       string     `validate:"required"`
}

var validate = validator.New()

// LoadSettings reads and parses the reminder settings for a store, applying
// defaults for unset values. Call Validate before acting on the result; a
// disabled store may legitimately carry an incomplete configuration.
func LoadSettings(ctx context.Context, provider SettingProvider, storeID uint) (*Settings, error) {
	s := &Settings{
		TerminalAction: ActionNone,
		Template:       "order_reminder",
		LastTemplate:   "order_reminder_final",
		CopyMethod:     CopyMethodBCC,
		Timezone:       "UTC",
	}

	var err error
	if s.Enabled, err = settingBool(ctx, provider, storeID, PathEnabled, false); err != nil {
		return nil, err
	}
	if s.Count, err = settingInt(ctx, provider, storeID, PathCount, 0); err != nil {
		return nil, err
	}
	if s.IntervalDays, err = settingInt(ctx, provider, storeID, PathIntervalDays, 0); err != nil {
		return nil, err
	}

	if raw, ok, err := provider.Setting(ctx, storeID, PathTerminalAction); err != nil {
		return nil, err
	} else if ok {
		s.TerminalAction = TerminalAction(raw)
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathMoveGroup); err != nil {
		return nil, err
	} else if ok {
		s.MoveGroup = strings.TrimSpace(raw)
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathSenderName); err != nil {
		return nil, err
	} else if ok {
		s.SenderName = raw
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathSenderEmail); err != nil {
		return nil, err
	} else if ok {
		s.SenderEmail = strings.TrimSpace(raw)
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathTemplate); err != nil {
		return nil, err
	} else if ok && raw != "" {
		s.Template = raw
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathLastTemplate); err != nil {
		return nil, err
	} else if ok && raw != "" {
		s.LastTemplate = raw
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathCopyTo); err != nil {
		return nil, err
	} else if ok {
		s.CopyTo = splitAddressList(raw)
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathCopyMethod); err != nil {
		return nil, err
	} else if ok && raw != "" {
		s.CopyMethod = CopyMethod(raw)
	}
	if raw, ok, err := provider.Setting(ctx, storeID, PathTimezone); err != nil {
		return nil, err
	} else if ok && raw != "" {
		s.Timezone = raw
	}

	return s, nil
}

// Validate checks a fully loaded configuration before a run acts on it.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var msgs []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			field := strings.ToLower(fieldErr.Field())
			switch fieldErr.Tag() {
			case "required":
				msgs = append(msgs, field+" is required")
			case "email":
				msgs = append(msgs, field+" must be a valid email")
			case "min":
				msgs = append(msgs, field+" must be at least "+fieldErr.Param())
			case "oneof":
				msgs = append(msgs, field+" must be one of: "+fieldErr.Param())
			default:
				msgs = append(msgs, field+" is invalid")
			}
		}
		return fmt.Errorf("%s", strings.Join(msgs, ", "))
	}

	for _, addr := range s.CopyTo {
		if err := checkmail.ValidateFormat(addr); err != nil {
			return fmt.Errorf("invalid copy_to address %q: %w", addr, err)
		}
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// Location resolves the store's configured timezone.
func (s *Settings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// ReminderLimit is the total reminder window in days: the offset of the
// terminal stage.
func (s *Settings) ReminderLimit() int {
	return s.Count * s.IntervalDays
}

// TemplateFor picks the email template for a stage: the terminal stage uses
// the last-reminder template, every other stage the regular one.
func (s *Settings) TemplateFor(stage Stage) string {
	if stage.Terminal {
		return s.LastTemplate
	}
	return s.Template
}

func settingBool(ctx context.Context, provider SettingProvider, storeID uint, path string, fallback bool) (bool, error) {
	raw, ok, err := provider.Setting(ctx, storeID, path)
	if err != nil || !ok || raw == "" {
		return fallback, err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, nil
	}
}

func settingInt(ctx context.Context, provider SettingProvider, storeID uint, path string, fallback int) (int, error) {
	raw, ok, err := provider.Setting(ctx, storeID, path)
	if err != nil || !ok || raw == "" {
		return fallback, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", path, err)
	}
	return value, nil
}

func splitAddressList(raw string) []string {
	var addrs []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
