package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Crawler config
	if len(c.Crawler.Keywords) == 0 {
		errors = append(errors, ValidationError{
			Field:   "crawler.keywords",
			Message: "at least one keyword is required",
		})
	}

	for _, kw := range c.Crawler.Keywords {
		if strings.TrimSpace(kw) == "" {
			errors = append(errors, ValidationError{
				Field:   "crawler.keywords",
				Message: "keywords must not be blank",
			})
			break
		}
	}

	if c.Crawler.Region == "" {
		errors = append(errors, ValidationError{
			Field:   "crawler.region",
			Message: "region is required",
		})
	}

	if c.Crawler.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "crawler.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Crawler.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawler.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.Crawler.SearchURL != "" {
		if u, err := url.Parse(c.Crawler.SearchURL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "crawler.search_url",
				Message: "invalid search URL",
			})
		}
	}

	// Validate Storage config
	if c.Storage.JSONPath == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.json_path",
			Message: "json_path is required",
		})
	}

	if c.Storage.PostgresURL != "" {
		if _, err := url.Parse(c.Storage.PostgresURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "storage.postgres_url",
				Message: "invalid postgres URL",
			})
		}
	}

	// Validate Server config
	if c.Server.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Message: "addr is required",
		})
	}

	return errors
}
