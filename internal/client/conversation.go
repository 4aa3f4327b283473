package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

var ErrNoCompany = errors.New("company info is not set")

// Submitter is satisfied by *Client.
type Submitter interface {
	Submit(ctx context.Context, messages []model.Message, info model.CompanyInfo) (string, error)
}

// Waiter is satisfied by *Poller.
type Waiter interface {
	Wait(ctx context.Context, id string) (Outcome, error)
}

// Conversation is the client-side chat state: the transcript, the company
// being discussed, whether a reply is pending and the last error.
type Conversation struct {
	mu          sync.Mutex
	messages    []model.Message
	companyInfo *model.CompanyInfo
	loading     bool
	err         string

	api    Submitter
	poller Waiter
}

func NewConversation(api Submitter, poller Waiter) *Conversation {
	return &Conversation{api: api, poller: poller}
}

func (c *Conversation) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) CompanyInfo() (model.CompanyInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.companyInfo == nil {
		return model.CompanyInfo{}, false
	}
	return *c.companyInfo, true
}

func (c *Conversation) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Error is the last failure shown to the user, empty when none.
func (c *Conversation) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SetCompanyInfo starts the conversation about a company and adds the
// assistant greeting.
func (c *Conversation) SetCompanyInfo(info model.CompanyInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.companyInfo = &info
	c.mu.Unlock()

	c.AddMessage(model.Message{
		Role: model.RoleAssistant,
		Content: fmt.Sprintf("Thanks for providing your company information! I'll be your AI support specialist for %s. "+
			"I can help you understand our AI solutions and how they can benefit your business.", info.CompanyName),
	})
	return nil
}

// AddMessage appends m, assigning an id when it has none.
func (c *Conversation) AddMessage(m model.Message) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

func (c *Conversation) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

// Clear drops the transcript, the company info and the error.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.companyInfo = nil
	c.err = ""
}

// Send adds the user turn, submits the whole transcript and waits for the
// reply. A completed reply is appended as an assistant message; a failure or
// timeout is recorded as the error instead.
func (c *Conversation) Send(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, errors.New("message is empty")
	}
	info, ok := c.CompanyInfo()
	if !ok {
		return Outcome{}, ErrNoCompany
	}

	c.AddMessage(model.Message{Role: model.RoleUser, Content: text})
	c.mu.Lock()
	c.loading = true
	c.err = ""
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	id, err := c.api.Submit(ctx, c.Messages(), info)
	if err != nil {
		c.SetError(err.Error())
		return Outcome{Kind: OutcomeFailed, Message: err.Error()}, nil
	}

	out, err := c.poller.Wait(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	switch out.Kind {
	case OutcomeCompleted:
		c.AddMessage(model.Message{Role: model.RoleAssistant, Content: out.Text})
	default:
		c.SetError(out.Message)
	}
	return out, nil
}
