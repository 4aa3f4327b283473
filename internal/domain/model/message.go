package model

import (
	"fmt"
	"strings"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
)

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the wire spelling of a role, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Message is one turn of the conversation as supplied by the client.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompanyInfo identifies the prospect company the assistant talks about.
type CompanyInfo struct {
	CompanyName string `json:"companyName"`
	WebsiteURL  string `json:"websiteUrl"`
}

func (c CompanyInfo) Validate() error {
	if strings.TrimSpace(c.CompanyName) == "" {
		return fmt.Errorf("%w: companyInfo.companyName is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(c.WebsiteURL) == "" {
		return fmt.Errorf("%w: companyInfo.websiteUrl is required", domain.ErrInvalidArgument)
	}
	return nil
}
