// Package config loads application configuration from an optional YAML file,
// a .env file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Zone database for scratch images.

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultExternalURL    = "https://gitlab.com"
	DefaultSlackName      = "GitLab Reminder"
	DefaultSlackMessage   = "Merge requests are overdue:"
	DefaultWIPDays        = 7
	DefaultNormalHours    = 8
	DefaultWIPHours       = 40
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultMaxConcurrency = 8
)

// ErrMissingConfig is returned by the Validate methods when a required
// setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"gitlab.external_url":          "GITLAB_EXTERNAL_URL",
	"gitlab.access_token":          "GITLAB_ACCESS_TOKEN",
	"gitlab.group":                 "GITLAB_GROUP",
	"gitlab.include_subgroups":     "GITLAB_INCLUDE_SUBGROUPS",
	"slack.webhook_url":            "SLACK_WEBHOOK_URL",
	"slack.channel":                "SLACK_CHANNEL",
	"slack.name":                   "SLACK_NAME",
	"slack.message":                "SLACK_MESSAGE",
	"slack.icon_url":               "SLACK_ICON_URL",
	"slack.layout":                 "SLACK_LAYOUT",
	"mr.normal_mr_days_threshold":  "GITLAB_NORMAL_MR_DAYS_THRESHOLD",
	"mr.wip_mr_days_threshold":     "GITLAB_WIP_MR_DAYS_THRESHOLD",
	"mr.normal_mr_hours_threshold": "GITLAB_NORMAL_MR_HOURS_THRESHOLD",
	"mr.wip_mr_hours_threshold":    "GITLAB_WIP_MR_HOURS_THRESHOLD",
	"mr.min_approvals_required":    "GITLAB_MIN_APPROVALS_REQUIRED",
	"mr.staleness_unit":            "GITLAB_STALENESS_UNIT",
	"mr.blocker_policy":            "REMINDER_BLOCKER_POLICY",
	"mr.time_zone":                 "REMINDER_TIME_ZONE",
	"http.timeout":                 "REMINDER_HTTP_TIMEOUT",
	"http.cache_dir":               "REMINDER_HTTP_CACHE_DIR",
	"http.max_concurrency":         "REMINDER_MAX_CONCURRENCY",
	"allowed_reviewers":            "ALLOWED_REVIEWERS",
	"debug":                        "REMINDER_DEBUG",
}

// Config is the fully resolved configuration. It is built once by Load and
// must not be modified afterwards.
type Config struct {
	GitLab           GitLabConfig      `yaml:"gitlab"`
	Slack            SlackConfig       `yaml:"slack"`
	MR               MRConfig          `yaml:"mr"`
	HTTP             HTTPConfig        `yaml:"http"`
	AllowedReviewers []string          `yaml:"allowed_reviewers"`
	SlackUserMap     map[string]string `yaml:"slack_user_map"`
	Debug            bool              `yaml:"debug"`
}

// GitLabConfig holds the code-hosting API settings.
type GitLabConfig struct {
	ExternalURL      string `yaml:"external_url"`
	AccessToken      string `yaml:"access_token"`
	Group            string `yaml:"group"`
	IncludeSubgroups bool   `yaml:"include_subgroups"`
}

// SlackConfig holds the incoming webhook settings.
type SlackConfig struct {
	WebhookURL string              `yaml:"webhook_url"`
	Channel    string              `yaml:"channel"`
	Name       string              `yaml:"name"`
	Message    string              `yaml:"message"`
	IconURL    string              `yaml:"icon_url"`
	Layout     model.MessageLayout `yaml:"layout"`
}

// MRConfig holds the reminder policy. Day thresholds apply with the "days"
// unit, hour thresholds with "business_hours".
type MRConfig struct {
	NormalDaysThreshold  int                 `yaml:"normal_mr_days_threshold"`
	WIPDaysThreshold     int                 `yaml:"wip_mr_days_threshold"`
	NormalHoursThreshold int                 `yaml:"normal_mr_hours_threshold"`
	WIPHoursThreshold    int                 `yaml:"wip_mr_hours_threshold"`
	MinApprovalsRequired int                 `yaml:"min_approvals_required"`
	StalenessUnit        model.StalenessUnit `yaml:"staleness_unit"`
	BlockerPolicy        model.BlockerPolicy `yaml:"blocker_policy"`
	TimeZone             string              `yaml:"time_zone"`
	Location             *time.Location      `yaml:"-"`
}

// HTTPConfig holds transport settings shared by every outbound request.
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	CacheDir       string        `yaml:"cache_dir"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// Load resolves the configuration. Precedence, highest first: environment
// variables (including those from a .env file in the working directory), the
// YAML file at path, built-in defaults. A missing file is logged and ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Warn("config file not found, using environment only", "path", path)
		} else {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gitlab.external_url", DefaultExternalURL)
	v.SetDefault("slack.name", DefaultSlackName)
	v.SetDefault("slack.message", DefaultSlackMessage)
	v.SetDefault("slack.layout", string(model.LayoutCompact))
	v.SetDefault("mr.normal_mr_days_threshold", 0)
	v.SetDefault("mr.wip_mr_days_threshold", DefaultWIPDays)
	v.SetDefault("mr.normal_mr_hours_threshold", DefaultNormalHours)
	v.SetDefault("mr.wip_mr_hours_threshold", DefaultWIPHours)
	v.SetDefault("mr.min_approvals_required", 0)
	v.SetDefault("mr.staleness_unit", string(model.StalenessDays))
	v.SetDefault("mr.blocker_policy", string(model.BlockerPolicyReviewer))
	v.SetDefault("http.timeout", DefaultHTTPTimeout.String())
	v.SetDefault("http.max_concurrency", DefaultMaxConcurrency)
}

// fromViper converts raw settings into a validated Config, failing fast on
// malformed values.
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GitLab: GitLabConfig{
			ExternalURL: strings.TrimRight(strings.TrimSpace(v.GetString("gitlab.external_url")), "/"),
			AccessToken: strings.TrimSpace(v.GetString("gitlab.access_token")),
			Group:       strings.TrimSpace(v.GetString("gitlab.group")),
		},
		Slack: SlackConfig{
			WebhookURL: strings.TrimSpace(v.GetString("slack.webhook_url")),
			Channel:    v.GetString("slack.channel"),
			Name:       v.GetString("slack.name"),
			Message:    v.GetString("slack.message"),
			IconURL:    v.GetString("slack.icon_url"),
			Layout:     model.MessageLayout(v.GetString("slack.layout")),
		},
		MR: MRConfig{
			StalenessUnit: model.StalenessUnit(v.GetString("mr.staleness_unit")),
			BlockerPolicy: model.BlockerPolicy(v.GetString("mr.blocker_policy")),
			TimeZone:      v.GetString("mr.time_zone"),
		},
		HTTP: HTTPConfig{
			CacheDir: v.GetString("http.cache_dir"),
		},
		AllowedReviewers: stringList(v.Get("allowed_reviewers")),
		SlackUserMap:     v.GetStringMapString("slack_user_map"),
		Debug:            truthy(v.GetString("debug")),
	}

	var err error
	if cfg.GitLab.IncludeSubgroups, err = parseBool(v, "gitlab.include_subgroups"); err != nil {
		return nil, err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"mr.normal_mr_days_threshold", &cfg.MR.NormalDaysThreshold},
		{"mr.wip_mr_days_threshold", &cfg.MR.WIPDaysThreshold},
		{"mr.normal_mr_hours_threshold", &cfg.MR.NormalHoursThreshold},
		{"mr.wip_mr_hours_threshold", &cfg.MR.WIPHoursThreshold},
		{"mr.min_approvals_required", &cfg.MR.MinApprovalsRequired},
		{"http.max_concurrency", &cfg.HTTP.MaxConcurrency},
	}
	for _, field := range ints {
		if *field.dst, err = parseNonNegativeInt(v, field.key); err != nil {
			return nil, err
		}
	}

	timeout := v.GetString("http.timeout")
	if cfg.HTTP.Timeout, err = time.ParseDuration(timeout); err != nil {
		return nil, fmt.Errorf("%s has invalid duration %q: %w", describe("http.timeout"), timeout, err)
	}

	cfg.MR.Location = time.Local
	if cfg.MR.TimeZone != "" {
		loc, err := time.LoadLocation(cfg.MR.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid time zone %q: %w", describe("mr.time_zone"), cfg.MR.TimeZone, err)
		}
		cfg.MR.Location = loc
	}

	if !cfg.MR.StalenessUnit.Valid() {
		return nil, fmt.Errorf("%s must be %q or %q, got %q", describe("mr.staleness_unit"),
			model.StalenessDays, model.StalenessBusinessHours, cfg.MR.StalenessUnit)
	}
	if !cfg.MR.BlockerPolicy.Valid() {
		return nil, fmt.Errorf("%s must be %q or %q, got %q", describe("mr.blocker_policy"),
			model.BlockerPolicyReviewer, model.BlockerPolicyAssignees, cfg.MR.BlockerPolicy)
	}
	if !cfg.Slack.Layout.Valid() {
		return nil, fmt.Errorf("%s must be %q or %q, got %q", describe("slack.layout"),
			model.LayoutCompact, model.LayoutTitled, cfg.Slack.Layout)
	}

	return cfg, nil
}

// Validate checks the settings needed to read from GitLab.
func (c *Config) Validate() error {
	var missing []string
	if c.GitLab.AccessToken == "" {
		missing = append(missing, describe("gitlab.access_token"))
	}
	if c.GitLab.Group == "" {
		missing = append(missing, describe("gitlab.group"))
	}
	if c.GitLab.ExternalURL == "" {
		missing = append(missing, describe("gitlab.external_url"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateNotifier checks the settings needed to post to Slack.
func (c *Config) ValidateNotifier() error {
	if c.Slack.WebhookURL == "" {
		return fmt.Errorf("%w: %s", ErrMissingConfig, describe("slack.webhook_url"))
	}
	return nil
}

// NormalThreshold returns the normal staleness threshold in the configured unit.
func (c *Config) NormalThreshold() int {
	if c.MR.StalenessUnit == model.StalenessBusinessHours {
		return c.MR.NormalHoursThreshold
	}
	return c.MR.NormalDaysThreshold
}

// WIPThreshold returns the WIP staleness threshold in the configured unit.
func (c *Config) WIPThreshold() int {
	if c.MR.StalenessUnit == model.StalenessBusinessHours {
		return c.MR.WIPHoursThreshold
	}
	return c.MR.WIPDaysThreshold
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	out.GitLab.AccessToken = mask(c.GitLab.AccessToken)
	out.Slack.WebhookURL = mask(c.Slack.WebhookURL)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// describe names a key together with its environment variable for error messages.
func describe(key string) string {
	return fmt.Sprintf("%s (%s)", key, envBindings[key])
}

func parseNonNegativeInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", describe(key), raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", describe(key), n)
	}
	return n, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", describe(key), raw, err)
	}
	return b, nil
}

// truthy treats any non-empty value other than an explicit false as true,
// so REMINDER_DEBUG=1 and REMINDER_DEBUG=yes both enable debug output.
func truthy(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return true
}

// stringList accepts a YAML list or a comma-separated string and returns the
// trimmed, non-empty entries.
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case nil:
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
