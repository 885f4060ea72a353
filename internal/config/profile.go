package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Profile carries the tunable simulator defaults applied to invoices that
// omit the corresponding field. It can be edited at runtime through the
// mounted profile file.
type Profile struct {
	DefaultCurrency string        `mapstructure:"defaultCurrency"`
	DefaultEmitMs   int64         `mapstructure:"defaultEmitAfterMs"`
	CheckoutBaseURL string        `mapstructure:"checkoutBaseUrl"`
	DeliveryTimeout time.Duration `mapstructure:"deliveryTimeout"`
}

func DefaultProfile() Profile {
	return Profile{
		DefaultCurrency: "BRL",
		DefaultEmitMs:   5_000,
		CheckoutBaseURL: "https://checkout.local/invoice",
	}
}

// ProfileHolder exposes the current profile and swaps it atomically on
// config file changes.
type ProfileHolder struct {
	current atomic.Value // holds Profile
}

func NewProfileHolder() (*ProfileHolder, error) {
	v := viper.New()

	v.SetConfigName("profile")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/mockpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOCKPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultProfile()
		v.SetDefault("simulator.defaultCurrency", defaults.DefaultCurrency)
		v.SetDefault("simulator.defaultEmitAfterMs", defaults.DefaultEmitMs)
		v.SetDefault("simulator.checkoutBaseUrl", defaults.CheckoutBaseURL)
	}

	var profile Profile
	if err := v.UnmarshalKey("simulator", &profile); err != nil {
		return nil, err
	}
	profile = profile.withDefaults()
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	holder := &ProfileHolder{}
	holder.current.Store(profile)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Profile
		if err := v.UnmarshalKey("simulator", &updated); err != nil {
			log.Printf("[profile] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validateProfile(updated); err != nil {
			log.Printf("[profile] invalid profile ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[profile] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ProfileHolder) Get() Profile {
	return h.current.Load().(Profile)
}

// SetForTest replaces the active profile.
func (h *ProfileHolder) SetForTest(p Profile) {
	h.current.Store(p.withDefaults())
}

// NewStaticProfileHolder wraps a fixed profile, for tests.
func NewStaticProfileHolder(p Profile) *ProfileHolder {
	holder := &ProfileHolder{}
	holder.current.Store(p.withDefaults())
	return holder
}

func (p Profile) withDefaults() Profile {
	defaults := DefaultProfile()
	if strings.TrimSpace(p.DefaultCurrency) == "" {
		p.DefaultCurrency = defaults.DefaultCurrency
	}
	if p.DefaultEmitMs <= 0 {
		p.DefaultEmitMs = defaults.DefaultEmitMs
	}
	if strings.TrimSpace(p.CheckoutBaseURL) == "" {
		p.CheckoutBaseURL = defaults.CheckoutBaseURL
	}
	p.CheckoutBaseURL = strings.TrimRight(p.CheckoutBaseURL, "/")
	return p
}

func validateProfile(p Profile) error {
	if strings.TrimSpace(p.DefaultCurrency) == "" {
		return errors.New("simulator.defaultCurrency cannot be empty")
	}
	if p.DeliveryTimeout < 0 {
		return errors.New("simulator.deliveryTimeout cannot be negative")
	}
	return nil
}
