// Package gateway implements core.Gateway against the remote chat
// platform: HTTP for mutations and queries, a websocket stream for
// events.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/portald/internal/core"
	"github.com/dkeye/portald/internal/domain"
)

const (
	channelTypeText     = 0
	channelTypeVoice    = 2
	channelTypeCategory = 4

	overwriteTypeRole   = 0
	overwriteTypeMember = 1
)

// Client talks to the remote platform. One instance serves both the REST
// surface and the event stream; the voice cache they share is how
// occupant lists are known without extra round-trips.
type Client struct {
	Token   string
	BaseURL string
	WSURL   string
	Handler core.EventHandler

	HTTP *http.Client

	mu sync.RWMutex
	// member -> current voice channel, per guild; fed by the event stream.
	voice map[domain.GuildID]map[domain.MemberID]domain.ChannelID
	// reverse index: channel -> occupants.
	occupants map[domain.ChannelID]map[domain.MemberID]struct{}

	send    chan []byte
	lastSeq int64
}

func NewClient(token, baseURL, wsURL string, handler core.EventHandler) *Client {
	return &Client{
		Token:     token,
		BaseURL:   baseURL,
		WSURL:     wsURL,
		Handler:   handler,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		voice:     make(map[domain.GuildID]map[domain.MemberID]domain.ChannelID),
		occupants: make(map[domain.ChannelID]map[domain.MemberID]struct{}),
		send:      make(chan []byte, 16),
	}
}

type apiOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

type apiChannel struct {
	ID         string         `json:"id"`
	GuildID    string         `json:"guild_id"`
	ParentID   string         `json:"parent_id"`
	Type       int            `json:"type"`
	Name       string         `json:"name"`
	Topic      string         `json:"topic"`
	UserLimit  int            `json:"user_limit"`
	Overwrites []apiOverwrite `json:"permission_overwrites"`
}

func toAPIOverwrites(ows []domain.Overwrite) []apiOverwrite {
	out := make([]apiOverwrite, 0, len(ows))
	for _, ow := range ows {
		kind := overwriteTypeRole
		if ow.SubjectKind == domain.SubjectMember {
			kind = overwriteTypeMember
		}
		out = append(out, apiOverwrite{
			ID:    ow.SubjectID,
			Type:  kind,
			Allow: strconv.FormatUint(uint64(ow.Allow), 10),
			Deny:  strconv.FormatUint(uint64(ow.Deny), 10),
		})
	}
	return out
}

func fromAPIOverwrites(ows []apiOverwrite) []domain.Overwrite {
	out := make([]domain.Overwrite, 0, len(ows))
	for _, ow := range ows {
		kind := domain.SubjectRole
		if ow.Type == overwriteTypeMember {
			kind = domain.SubjectMember
		}
		allow, _ := strconv.ParseUint(ow.Allow, 10, 64)
		deny, _ := strconv.ParseUint(ow.Deny, 10, 64)
		out = append(out, domain.Overwrite{
			SubjectID:   ow.ID,
			SubjectKind: kind,
			Allow:       domain.PermissionSet(allow),
			Deny:        domain.PermissionSet(deny),
		})
	}
	return out
}

// do runs one authenticated API call. notFoundOK turns a 404 into a
// (false, nil) result instead of an error, for idempotent deletes and
// absence probes.
func (c *Client) do(ctx context.Context, method, path string, in, out any, notFoundOK bool) (bool, error) {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFoundOK {
		return false, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return false, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return true, nil
}

type createChannelRequest struct {
	Name       string         `json:"name"`
	Type       int            `json:"type"`
	ParentID   string         `json:"parent_id,omitempty"`
	Topic      string         `json:"topic,omitempty"`
	Overwrites []apiOverwrite `json:"permission_overwrites,omitempty"`
}

func (c *Client) createChannel(ctx context.Context, guild domain.GuildID, req createChannelRequest) (domain.ChannelID, error) {
	var created apiChannel
	if _, err := c.do(ctx, http.MethodPost, "/guilds/"+string(guild)+"/channels", req, &created, false); err != nil {
		return "", err
	}
	return domain.ChannelID(created.ID), nil
}

func (c *Client) CreateCategory(ctx context.Context, guild domain.GuildID, name string, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	return c.createChannel(ctx, guild, createChannelRequest{
		Name:       name,
		Type:       channelTypeCategory,
		Overwrites: toAPIOverwrites(overwrites),
	})
}

func (c *Client) CreateVoiceChannel(ctx context.Context, guild domain.GuildID, name string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	return c.createChannel(ctx, guild, createChannelRequest{
		Name:       name,
		Type:       channelTypeVoice,
		ParentID:   string(parent),
		Overwrites: toAPIOverwrites(overwrites),
	})
}

func (c *Client) CreateTextChannel(ctx context.Context, guild domain.GuildID, name, topic string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	return c.createChannel(ctx, guild, createChannelRequest{
		Name:       name,
		Type:       channelTypeText,
		ParentID:   string(parent),
		Topic:      topic,
		Overwrites: toAPIOverwrites(overwrites),
	})
}

// DeleteChannel removes a channel; one already gone counts as deleted.
func (c *Client) DeleteChannel(ctx context.Context, channel domain.ChannelID) error {
	_, err := c.do(ctx, http.MethodDelete, "/channels/"+string(channel), nil, nil, true)
	return err
}

func (c *Client) ModifyChannel(ctx context.Context, channel domain.ChannelID, patch domain.ChannelPatch) error {
	req := map[string]any{}
	if patch.Name != nil {
		req["name"] = *patch.Name
	}
	if patch.UserLimit != nil {
		req["user_limit"] = *patch.UserLimit
	}
	if len(req) == 0 {
		return nil
	}
	_, err := c.do(ctx, http.MethodPatch, "/channels/"+string(channel), req, nil, false)
	return err
}

func (c *Client) SetOverwrite(ctx context.Context, channel domain.ChannelID, overwrite domain.Overwrite) error {
	kind := overwriteTypeRole
	if overwrite.SubjectKind == domain.SubjectMember {
		kind = overwriteTypeMember
	}
	req := map[string]any{
		"type":  kind,
		"allow": strconv.FormatUint(uint64(overwrite.Allow), 10),
		"deny":  strconv.FormatUint(uint64(overwrite.Deny), 10),
	}
	_, err := c.do(ctx, http.MethodPut, "/channels/"+string(channel)+"/permissions/"+overwrite.SubjectID, req, nil, false)
	return err
}

func (c *Client) DeleteOverwrite(ctx context.Context, channel domain.ChannelID, subjectID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/channels/"+string(channel)+"/permissions/"+subjectID, nil, nil, true)
	return err
}

// ListOverwrites returns the current permission overwrites of a channel.
// An absent channel yields an empty set.
func (c *Client) ListOverwrites(ctx context.Context, channel domain.ChannelID) ([]domain.Overwrite, error) {
	ch, err := c.GetChannel(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("list overwrites: %w", err)
	}
	if ch == nil {
		return nil, nil
	}
	return ch.Overwrites, nil
}

// GetChannel returns the live channel snapshot, with occupants filled in
// from the voice cache, or (nil, nil) when the channel no longer exists.
func (c *Client) GetChannel(ctx context.Context, channel domain.ChannelID) (*domain.Channel, error) {
	var ch apiChannel
	found, err := c.do(ctx, http.MethodGet, "/channels/"+string(channel), nil, &ch, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	kind := domain.ChannelText
	switch ch.Type {
	case channelTypeVoice:
		kind = domain.ChannelVoice
	case channelTypeCategory:
		kind = domain.ChannelCategory
	}

	return &domain.Channel{
		ID:         domain.ChannelID(ch.ID),
		GuildID:    domain.GuildID(ch.GuildID),
		ParentID:   domain.ChannelID(ch.ParentID),
		Kind:       kind,
		Name:       ch.Name,
		Topic:      ch.Topic,
		UserLimit:  ch.UserLimit,
		Occupants:  c.occupantsOf(channel),
		Overwrites: fromAPIOverwrites(ch.Overwrites),
	}, nil
}

type apiMember struct {
	User struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	} `json:"user"`
	Nick string `json:"nick"`
}

func (c *Client) GetMember(ctx context.Context, guild domain.GuildID, member domain.MemberID) (*domain.Member, error) {
	var m apiMember
	if _, err := c.do(ctx, http.MethodGet, "/guilds/"+string(guild)+"/members/"+string(member), nil, &m, false); err != nil {
		return nil, err
	}
	return &domain.Member{
		ID:             domain.MemberID(m.User.ID),
		Username:       m.User.Username,
		GlobalName:     m.User.GlobalName,
		Nickname:       m.Nick,
		VoiceChannelID: c.voiceChannelOf(guild, member),
	}, nil
}

func (c *Client) MoveMember(ctx context.Context, guild domain.GuildID, member domain.MemberID, dest domain.ChannelID) error {
	req := map[string]any{"channel_id": string(dest)}
	if _, err := c.do(ctx, http.MethodPatch, "/guilds/"+string(guild)+"/members/"+string(member), req, nil, false); err != nil {
		return err
	}
	// The stream will confirm, but moving the cache now keeps the very
	// next decision for this guild consistent.
	c.trackVoice(guild, member, dest)
	return nil
}

func (c *Client) Disconnect(ctx context.Context, guild domain.GuildID, member domain.MemberID) error {
	req := map[string]any{"channel_id": nil}
	if _, err := c.do(ctx, http.MethodPatch, "/guilds/"+string(guild)+"/members/"+string(member), req, nil, false); err != nil {
		return err
	}
	c.trackVoice(guild, member, "")
	return nil
}

type apiMessage struct {
	ID string `json:"id"`
}

func (c *Client) SendMessage(ctx context.Context, channel domain.ChannelID, msg domain.Message) (domain.MessageID, error) {
	var sent apiMessage
	if _, err := c.do(ctx, http.MethodPost, "/channels/"+string(channel)+"/messages", msg, &sent, false); err != nil {
		return "", err
	}
	log.Debug().Str("module", "gateway").Str("channel", string(channel)).Str("message", sent.ID).Msg("message sent")
	return domain.MessageID(sent.ID), nil
}
