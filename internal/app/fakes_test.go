package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/portald/internal/domain"
	"github.com/dkeye/portald/internal/storage"
)

// memStore is an in-memory PortalStore for tests.
type memStore struct {
	mu   sync.Mutex
	rows map[domain.GuildID]domain.Portal
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[domain.GuildID]domain.Portal)}
}

func (s *memStore) Get(_ context.Context, guild domain.GuildID) (domain.Portal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[guild]
	if !ok {
		return domain.Portal{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Put(_ context.Context, portal domain.Portal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[portal.GuildID] = portal
	return nil
}

func (s *memStore) Delete(_ context.Context, guild domain.GuildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, guild)
	return nil
}

type fakeChannel struct {
	id         domain.ChannelID
	guild      domain.GuildID
	parent     domain.ChannelID
	kind       domain.ChannelKind
	name       string
	topic      string
	limit      int
	occupants  map[domain.MemberID]struct{}
	overwrites []domain.Overwrite
}

// fakeGateway is an in-memory remote world implementing core.Gateway.
// Individual operations can be forced to fail by name via failOn.
type fakeGateway struct {
	mu       sync.Mutex
	seq      int
	channels map[domain.ChannelID]*fakeChannel
	members  map[domain.MemberID]*domain.Member
	messages map[domain.ChannelID][]domain.Message
	failOn   map[string]error

	deleted []domain.ChannelID
	moves   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels: make(map[domain.ChannelID]*fakeChannel),
		members:  make(map[domain.MemberID]*domain.Member),
		messages: make(map[domain.ChannelID][]domain.Message),
		failOn:   make(map[string]error),
	}
}

func (g *fakeGateway) fail(op string) error {
	if err, ok := g.failOn[op]; ok {
		return err
	}
	return nil
}

func (g *fakeGateway) addMember(m domain.Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored := m
	g.members[m.ID] = &stored
	if m.VoiceChannelID != "" {
		if ch, ok := g.channels[m.VoiceChannelID]; ok {
			ch.occupants[m.ID] = struct{}{}
		}
	}
}

func (g *fakeGateway) nextID() domain.ChannelID {
	g.seq++
	return domain.ChannelID(fmt.Sprintf("ch-%d", g.seq))
}

func (g *fakeGateway) createChannel(guild domain.GuildID, kind domain.ChannelKind, name, topic string, parent domain.ChannelID, overwrites []domain.Overwrite) domain.ChannelID {
	id := g.nextID()
	g.channels[id] = &fakeChannel{
		id:         id,
		guild:      guild,
		parent:     parent,
		kind:       kind,
		name:       name,
		topic:      topic,
		occupants:  make(map[domain.MemberID]struct{}),
		overwrites: append([]domain.Overwrite(nil), overwrites...),
	}
	return id
}

func (g *fakeGateway) CreateCategory(_ context.Context, guild domain.GuildID, name string, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("create_category"); err != nil {
		return "", err
	}
	return g.createChannel(guild, domain.ChannelCategory, name, "", "", overwrites), nil
}

func (g *fakeGateway) CreateVoiceChannel(_ context.Context, guild domain.GuildID, name string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("create_voice"); err != nil {
		return "", err
	}
	return g.createChannel(guild, domain.ChannelVoice, name, "", parent, overwrites), nil
}

func (g *fakeGateway) CreateTextChannel(_ context.Context, guild domain.GuildID, name, topic string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("create_text"); err != nil {
		return "", err
	}
	return g.createChannel(guild, domain.ChannelText, name, topic, parent, overwrites), nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, channel domain.ChannelID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("delete_channel"); err != nil {
		return err
	}
	// Absent channels delete fine; record the call either way.
	g.deleted = append(g.deleted, channel)
	if ch, ok := g.channels[channel]; ok {
		for m := range ch.occupants {
			if member, ok := g.members[m]; ok {
				member.VoiceChannelID = ""
			}
		}
		delete(g.channels, channel)
	}
	return nil
}

func (g *fakeGateway) ModifyChannel(_ context.Context, channel domain.ChannelID, patch domain.ChannelPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("modify_channel"); err != nil {
		return err
	}
	ch, ok := g.channels[channel]
	if !ok {
		return fmt.Errorf("modify: channel %s gone", channel)
	}
	if patch.Name != nil {
		ch.name = *patch.Name
	}
	if patch.UserLimit != nil {
		ch.limit = *patch.UserLimit
	}
	return nil
}

func (g *fakeGateway) SetOverwrite(_ context.Context, channel domain.ChannelID, overwrite domain.Overwrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("set_overwrite"); err != nil {
		return err
	}
	ch, ok := g.channels[channel]
	if !ok {
		return fmt.Errorf("set overwrite: channel %s gone", channel)
	}
	for i, ow := range ch.overwrites {
		if ow.SubjectID == overwrite.SubjectID {
			ch.overwrites[i] = overwrite
			return nil
		}
	}
	ch.overwrites = append(ch.overwrites, overwrite)
	return nil
}

func (g *fakeGateway) DeleteOverwrite(_ context.Context, channel domain.ChannelID, subjectID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("delete_overwrite"); err != nil {
		return err
	}
	ch, ok := g.channels[channel]
	if !ok {
		return nil
	}
	kept := ch.overwrites[:0]
	for _, ow := range ch.overwrites {
		if ow.SubjectID != subjectID {
			kept = append(kept, ow)
		}
	}
	ch.overwrites = kept
	return nil
}

func (g *fakeGateway) ListOverwrites(_ context.Context, channel domain.ChannelID) ([]domain.Overwrite, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("list_overwrites"); err != nil {
		return nil, err
	}
	ch, ok := g.channels[channel]
	if !ok {
		return nil, nil
	}
	return append([]domain.Overwrite(nil), ch.overwrites...), nil
}

func (g *fakeGateway) GetChannel(_ context.Context, channel domain.ChannelID) (*domain.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("get_channel"); err != nil {
		return nil, err
	}
	ch, ok := g.channels[channel]
	if !ok {
		return nil, nil
	}
	occupants := make([]domain.MemberID, 0, len(ch.occupants))
	for m := range ch.occupants {
		occupants = append(occupants, m)
	}
	return &domain.Channel{
		ID:         ch.id,
		GuildID:    ch.guild,
		ParentID:   ch.parent,
		Kind:       ch.kind,
		Name:       ch.name,
		Topic:      ch.topic,
		UserLimit:  ch.limit,
		Occupants:  occupants,
		Overwrites: append([]domain.Overwrite(nil), ch.overwrites...),
	}, nil
}

func (g *fakeGateway) GetMember(_ context.Context, _ domain.GuildID, member domain.MemberID) (*domain.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("get_member"); err != nil {
		return nil, err
	}
	m, ok := g.members[member]
	if !ok {
		return nil, fmt.Errorf("member %s unknown", member)
	}
	snapshot := *m
	return &snapshot, nil
}

func (g *fakeGateway) MoveMember(_ context.Context, _ domain.GuildID, member domain.MemberID, dest domain.ChannelID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("move_member"); err != nil {
		return err
	}
	m, ok := g.members[member]
	if !ok {
		return fmt.Errorf("member %s unknown", member)
	}
	if _, ok := g.channels[dest]; !ok {
		return fmt.Errorf("move: channel %s gone", dest)
	}
	if m.VoiceChannelID != "" {
		if old, ok := g.channels[m.VoiceChannelID]; ok {
			delete(old.occupants, member)
		}
	}
	m.VoiceChannelID = dest
	g.channels[dest].occupants[member] = struct{}{}
	g.moves++
	return nil
}

func (g *fakeGateway) Disconnect(_ context.Context, _ domain.GuildID, member domain.MemberID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("disconnect"); err != nil {
		return err
	}
	m, ok := g.members[member]
	if !ok {
		return fmt.Errorf("member %s unknown", member)
	}
	if m.VoiceChannelID != "" {
		if old, ok := g.channels[m.VoiceChannelID]; ok {
			delete(old.occupants, member)
		}
	}
	m.VoiceChannelID = ""
	return nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channel domain.ChannelID, msg domain.Message) (domain.MessageID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("send_message"); err != nil {
		return "", err
	}
	g.messages[channel] = append(g.messages[channel], msg)
	return domain.MessageID(fmt.Sprintf("msg-%d", len(g.messages[channel]))), nil
}

func (g *fakeGateway) channelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.channels)
}

func (g *fakeGateway) channelByName(name string) *fakeChannel {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.channels {
		if ch.name == name {
			return ch
		}
	}
	return nil
}
