package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ParamGetter reads a named secret, e.g. from AWS SSM Parameter Store.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ResolveDeepSeekKey fills DeepSeek.APIKey from the parameter store when the
// key is not configured directly but a parameter name is. An empty parameter
// value leaves the credential absent.
func (c *Config) ResolveDeepSeekKey(ctx context.Context, getter ParamGetter) error {
	if c.DeepSeek.APIKey != "" || c.DeepSeek.APIKeyParam == "" {
		return nil
	}
	if getter == nil {
		return errors.New("config: parameter getter must not be nil")
	}
	key, err := getter.GetParameter(ctx, c.DeepSeek.APIKeyParam)
	if err != nil {
		return fmt.Errorf("config: resolve deepseek api key: %w", err)
	}
	c.DeepSeek.APIKey = strings.TrimSpace(key)
	return nil
}
