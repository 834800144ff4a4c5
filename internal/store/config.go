package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Symbol      string `yaml:"symbol"`
	PollSeconds int    `yaml:"poll_seconds"`

	Session struct {
		// Windows are half-open "HH:MM-HH:MM" intervals in exchange wall
		// clock; weekends are always closed.
		Windows   []string `yaml:"windows"`
		UTCOffset int      `yaml:"utc_offset_seconds"`
	} `yaml:"session"`

	Quote struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"quote"`

	Strategy struct {
		Endpoint       string    `yaml:"endpoint"`
		Levels         []float64 `yaml:"levels"`
		TimeoutMinutes int       `yaml:"timeout_minutes"`
	} `yaml:"strategy"`

	News struct {
		Enabled        bool `yaml:"enabled"`
		MaxArticles    int  `yaml:"max_articles"`
		RefreshMinutes int  `yaml:"refresh_minutes"`
		Sources        []struct {
			Name      string `yaml:"name"`
			BaseURL   string `yaml:"base_url"`
			ListPath  string `yaml:"list_path"`
			Container string `yaml:"container"`
			Title     string `yaml:"title"`
			Link      string `yaml:"link"`
			Published string `yaml:"published"`
		} `yaml:"sources"`
	} `yaml:"news"`

	AnalysisLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"analysis_log"`
}

func (c *Config) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if len(c.Session.Windows) == 0 {
		return errors.New("session.windows cannot be empty")
	}
	if c.Quote.BaseURL == "" {
		return errors.New("quote.base_url cannot be empty")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 3
	}
	if len(c.Session.Windows) == 0 {
		// DCE day and night sessions for commodity contracts.
		c.Session.Windows = []string{"09:00-10:15", "10:30-11:30", "13:30-15:00", "21:00-23:00"}
	}
	if c.Session.UTCOffset == 0 {
		c.Session.UTCOffset = 8 * 3600
	}
	if c.Quote.BaseURL == "" {
		c.Quote.BaseURL = "https://hq.sinajs.cn"
	}
	if c.Quote.TimeoutSeconds == 0 {
		c.Quote.TimeoutSeconds = 10
	}
	if c.Strategy.TimeoutMinutes == 0 {
		c.Strategy.TimeoutMinutes = 10
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.News.RefreshMinutes == 0 {
		c.News.RefreshMinutes = 30
	}
	if c.AnalysisLog.Dir == "" {
		c.AnalysisLog.Dir = "logs"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
