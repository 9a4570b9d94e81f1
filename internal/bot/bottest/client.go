// Package bottest provides an in-memory Telegram client for handler tests.
package bottest

import (
	"fmt"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Client records every outgoing request and answers lookups from its maps.
type Client struct {
	mu sync.Mutex

	// Statuses maps "<chat>/<user>" to a chat member status. Chat is the numeric id
	// or the @username the request used.
	Statuses map[string]string
	// LookupErrors makes GetChatMember fail for the given chat key.
	LookupErrors map[string]error
	// InviteLinks answers GetChat by numeric chat id.
	InviteLinks map[int64]string
	// SendErr, when set, is consulted before every Send and CopyMessage.
	SendErr func(c api.Chattable) error

	Sent       []api.Chattable
	Requests   []api.Chattable
	Copies     []api.CopyMessageConfig
	Lookups    []api.GetChatMemberConfig
	ChatLookup []api.ChatInfoConfig

	nextMessageID int
}

func New() *Client {
	return &Client{
		Statuses:     map[string]string{},
		LookupErrors: map[string]error{},
		InviteLinks:  map[int64]string{},
	}
}

// SetStatus records the membership status of user in chat ("@name" or numeric id).
func (c *Client) SetStatus(chat string, userID int64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[fmt.Sprintf("%s/%d", chat, userID)] = status
}

func (c *Client) Send(ch api.Chattable) (api.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		if err := c.SendErr(ch); err != nil {
			return api.Message{}, err
		}
	}
	c.Sent = append(c.Sent, ch)
	c.nextMessageID++
	return api.Message{MessageID: c.nextMessageID}, nil
}

func (c *Client) Request(ch api.Chattable) (*api.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, ch)
	return &api.APIResponse{Ok: true}, nil
}

func (c *Client) GetChatMember(cfg api.GetChatMemberConfig) (api.ChatMember, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Lookups = append(c.Lookups, cfg)
	chat := cfg.ChatConfigWithUser.ChatConfig.ChannelUsername
	if chat == "" {
		chat = fmt.Sprint(cfg.ChatConfigWithUser.ChatConfig.ChatID)
	}
	if err, ok := c.LookupErrors[chat]; ok {
		return api.ChatMember{}, err
	}
	status, ok := c.Statuses[fmt.Sprintf("%s/%d", chat, cfg.ChatConfigWithUser.UserID)]
	if !ok {
		status = "left"
	}
	return api.ChatMember{Status: status}, nil
}

func (c *Client) GetChat(cfg api.ChatInfoConfig) (api.ChatFullInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ChatLookup = append(c.ChatLookup, cfg)
	link, ok := c.InviteLinks[cfg.ChatConfig.ChatID]
	if !ok {
		return api.ChatFullInfo{}, fmt.Errorf("chat %d not found", cfg.ChatConfig.ChatID)
	}
	info := api.ChatFullInfo{}
	info.ID = cfg.ChatConfig.ChatID
	info.InviteLink = link
	return info, nil
}

func (c *Client) CopyMessage(cfg api.CopyMessageConfig) (api.MessageID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		if err := c.SendErr(cfg); err != nil {
			return api.MessageID{}, err
		}
	}
	c.Copies = append(c.Copies, cfg)
	c.nextMessageID++
	return api.MessageID{MessageID: c.nextMessageID}, nil
}

// SentSnapshot returns a copy of the sent list, safe to inspect concurrently.
func (c *Client) SentSnapshot() []api.Chattable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Chattable(nil), c.Sent...)
}

// Reset forgets recorded traffic and keeps the configured answers.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent, c.Requests, c.Copies, c.Lookups, c.ChatLookup = nil, nil, nil, nil, nil
}

// Texts returns the text of every sent MessageConfig and the caption of media.
func (c *Client) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res []string
	for _, ch := range c.Sent {
		switch m := ch.(type) {
		case api.MessageConfig:
			res = append(res, m.Text)
		case api.PhotoConfig:
			res = append(res, m.Caption)
		case api.VideoConfig:
			res = append(res, m.Caption)
		case api.DocumentConfig:
			res = append(res, m.Caption)
		case api.AnimationConfig:
			res = append(res, m.Caption)
		case api.EditMessageTextConfig:
			res = append(res, m.Text)
		}
	}
	return res
}
