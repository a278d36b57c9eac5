// Package labclient implements the Set, Material/Container and Study service
// contracts over HTTP.
package labclient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("labclient: invalid configuration")

// ServiceConfig holds the connection settings of one remote service
type ServiceConfig struct {
	// BaseURL is the scheme, host and optional path prefix of the service
	BaseURL string `validate:"required,url"`
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration `validate:"gte=0"`
	// PageSize is the max_results requested per page of a query
	PageSize int `validate:"gte=0,lte=1000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and fills in defaults
func (c *ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	return nil
}
