package templates

import (
	"time"

	"github.com/oksasatya/go-weather-digest/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006")
	}
}

func WithConfirmURL(url string) Option { return func(d *EmailData) { d.ConfirmURL = url } }

func WithCities(lines []CityLine) Option { return func(d *EmailData) { d.Cities = lines } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills common fields from config, then applies options.
func NewBaseEmailData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Email: email}
	if cfg != nil {
		d.AppName = cfg.AppName
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewConfirmEmailData(cfg *config.Config, name, email, confirmURL string, expiresAt time.Time, opts ...Option) EmailData {
	opts = append([]Option{WithConfirmURL(confirmURL), WithExpiresAt(expiresAt)}, opts...)
	return NewBaseEmailData(cfg, name, email, opts...)
}

func NewDigestData(cfg *config.Config, name, email string, lines []CityLine, opts ...Option) EmailData {
	opts = append([]Option{WithCities(lines)}, opts...)
	return NewBaseEmailData(cfg, name, email, opts...)
}
