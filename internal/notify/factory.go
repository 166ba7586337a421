package notify

import "github.com/dockhand-io/dockhand/internal/config"

// NewProvider selects a delivery backend from configuration. Unknown
// provider names fall back to console.
func NewProvider(cfg config.NotifyConfig) Provider {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPProvider(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.From,
		)
	default:
		return NewConsoleProvider()
	}
}
