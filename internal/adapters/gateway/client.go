package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/portald/internal/domain"
)

const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatAck = 11

	// Guild voice state intent plus guilds for channel lifecycle.
	gatewayIntents = 1 | 1<<7

	redialBackoff = 5 * time.Second
)

type envelope struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  int64           `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

// Run keeps a gateway session alive until the context is canceled,
// redialing after stream errors. Events are dispatched to the handler;
// one failing event never stops the stream.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.session(ctx); err != nil {
			log.Error().Err(err).Str("module", "gateway").Msg("session ended")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialBackoff):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("module", "gateway").Str("url", c.WSURL).Msg("gateway connected")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(sessionCtx, conn)
	return c.readPump(sessionCtx, cancel, conn)
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) error {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			c.handleEnvelope(ctx, data)
		}
	}
}

func (c *Client) handleEnvelope(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad envelope json")
		return
	}
	if env.S != 0 {
		atomic.StoreInt64(&c.lastSeq, env.S)
	}

	switch env.Op {
	case opHello:
		c.onHello(ctx, env.D)
	case opDispatch:
		c.onDispatch(ctx, env.T, env.D)
	case opHeartbeatAck:
	default:
		log.Debug().Str("module", "gateway").Int("op", env.Op).Msg("unhandled op")
	}
}

func (c *Client) onHello(ctx context.Context, raw json.RawMessage) {
	var hello struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(raw, &hello); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad hello payload")
		return
	}

	c.queue(envelope{Op: opIdentify, D: mustJSON(map[string]any{
		"token":   c.Token,
		"intents": gatewayIntents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "portald",
			"device":  "portald",
		},
	})})

	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 41 * time.Second
	}
	go c.heartbeat(ctx, interval)
}

func (c *Client) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := atomic.LoadInt64(&c.lastSeq)
			c.queue(envelope{Op: opHeartbeat, D: mustJSON(seq)})
		}
	}
}

func (c *Client) queue(env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("marshal envelope")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("module", "gateway").Int("op", env.Op).Msg("send queue full, dropping")
	}
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

type voiceStatePayload struct {
	GuildID   string  `json:"guild_id"`
	UserID    string  `json:"user_id"`
	ChannelID *string `json:"channel_id"`
}

func (c *Client) onDispatch(ctx context.Context, event string, raw json.RawMessage) {
	switch event {
	case "VOICE_STATE_UPDATE":
		c.onVoiceState(ctx, raw)
	case "READY", "GUILD_CREATE", "CHANNEL_CREATE", "CHANNEL_DELETE", "CHANNEL_UPDATE":
	default:
		log.Debug().Str("module", "gateway").Str("event", event).Msg("ignored dispatch")
	}
}

// onVoiceState turns the stream's absolute "member is now in channel X"
// updates into (old, new) transitions using the voice cache, then hands
// them to the orchestrator on its own goroutine. The per-guild lock in
// the handler provides the required ordering.
func (c *Client) onVoiceState(ctx context.Context, raw json.RawMessage) {
	var payload voiceStatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad voice state payload")
		return
	}

	guild := domain.GuildID(payload.GuildID)
	member := domain.MemberID(payload.UserID)
	var newChannel domain.ChannelID
	if payload.ChannelID != nil {
		newChannel = domain.ChannelID(*payload.ChannelID)
	}

	oldChannel := c.voiceChannelOf(guild, member)
	c.trackVoice(guild, member, newChannel)
	if oldChannel == newChannel {
		// Mute/deafen toggle, not a movement.
		return
	}

	state := domain.VoiceState{
		MemberID:     member,
		OldChannelID: oldChannel,
		NewChannelID: newChannel,
	}

	go func() {
		if err := c.Handler.HandleVoiceState(ctx, guild, state); err != nil {
			log.Error().Err(err).
				Str("module", "gateway").
				Str("guild", string(guild)).
				Str("member", string(member)).
				Str("old", string(oldChannel)).
				Str("new", string(newChannel)).
				Msg("voice state handling failed")
		}
	}()
}

func (c *Client) trackVoice(guild domain.GuildID, member domain.MemberID, channel domain.ChannelID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byMember, ok := c.voice[guild]
	if !ok {
		byMember = make(map[domain.MemberID]domain.ChannelID)
		c.voice[guild] = byMember
	}

	if old, ok := byMember[member]; ok && old != "" {
		if occ, ok := c.occupants[old]; ok {
			delete(occ, member)
			if len(occ) == 0 {
				delete(c.occupants, old)
			}
		}
	}

	if channel == "" {
		delete(byMember, member)
		return
	}
	byMember[member] = channel
	occ, ok := c.occupants[channel]
	if !ok {
		occ = make(map[domain.MemberID]struct{})
		c.occupants[channel] = occ
	}
	occ[member] = struct{}{}
}

func (c *Client) voiceChannelOf(guild domain.GuildID, member domain.MemberID) domain.ChannelID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voice[guild][member]
}

func (c *Client) occupantsOf(channel domain.ChannelID) []domain.MemberID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	occ := c.occupants[channel]
	out := make([]domain.MemberID, 0, len(occ))
	for member := range occ {
		out = append(out, member)
	}
	return out
}
