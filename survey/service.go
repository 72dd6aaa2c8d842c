// Package survey implements the bot commands: building templates, sending
// them to channels, taking surveys and reading results.
package survey

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mbolis/survey-wolf/cache"
	"github.com/mbolis/survey-wolf/identity"
	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/log"
	"github.com/mbolis/survey-wolf/model"
	"github.com/mbolis/survey-wolf/store"
	"github.com/mbolis/survey-wolf/timer"
)

// Caller is who ran a command, and where.
type Caller struct {
	UserID    string
	GuildID   string
	ChannelID string
}

// Presenter shows running surveys in their channel.
type Presenter interface {
	// Publish posts the message members take the survey from and returns its id.
	Publish(ctx context.Context, sv *model.ActiveSurvey, t *model.Template, message string) (string, error)
	// Disable marks the posted message of sv as ended.
	Disable(ctx context.Context, sv *model.ActiveSurvey) error
}

// LinkSigner makes short lived links to the export API.
type LinkSigner interface {
	ExportURL(guildID string, templateID int64) (string, error)
}

type Deps struct {
	Store     *store.Store
	Cache     cache.Templates
	Identity  identity.Transformer
	Timers    *timer.Scheduler
	Presenter Presenter
	Links     LinkSigner
}

type Service struct {
	store     *store.Store
	cache     cache.Templates
	ids       identity.Transformer
	timers    *timer.Scheduler
	presenter Presenter
	links     LinkSigner
	now       func() time.Time

	// floors holds the lowest template version the cache may take per id,
	// so a read that raced a save can not put the old version back.
	mu     sync.Mutex
	floors map[int64]int
}

func New(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		cache:     d.Cache,
		ids:       d.Identity,
		timers:    d.Timers,
		presenter: d.Presenter,
		links:     d.Links,
		now:       time.Now,
		floors:    map[int64]int{},
	}
	if s.ids == nil {
		s.ids = identity.Passthrough{}
	}
	if s.timers == nil {
		s.timers = timer.New()
	}
	return s
}

// SetPresenter sets the presenter of a service built before it.
func (s *Service) SetPresenter(p Presenter) {
	s.presenter = p
}

// template loads a template through the cache.
func (s *Service) template(ctx context.Context, id int64) (*model.Template, error) {
	if s.cache != nil {
		t, err := s.cache.Get(ctx, id)
		if err != nil {
			log.WithError(err).Warnf("cache.get_template: %d", id)
		}
		if t != nil {
			return t, nil
		}
	}

	t, err := s.store.Templates.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, t)
	return t, nil
}

// remember caches t unless a newer version was saved since it was read.
func (s *Service) remember(ctx context.Context, t *model.Template) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	stale := t.Version < s.floors[t.ID]
	s.mu.Unlock()
	if stale {
		log.Debugf("cache.put_template: %d version %d is stale", t.ID, t.Version)
		return
	}
	if err := s.cache.Put(ctx, t); err != nil {
		log.WithError(err).Warnf("cache.put_template: %d", t.ID)
	}
}

// templateByTitle finds a template of the caller's guild.
func (s *Service) templateByTitle(ctx context.Context, c Caller, title string) (*model.Template, error) {
	id, err := s.store.Templates.IDByTitle(ctx, c.GuildID, title)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(title)
	}
	if err != nil {
		return nil, err
	}
	t, err := s.template(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(title)
	}
	return t, err
}

// invalidate drops template id from the cache after version was saved.
func (s *Service) invalidate(ctx context.Context, id int64, version int) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	if version > s.floors[id] {
		s.floors[id] = version
	}
	s.mu.Unlock()
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.WithError(err).Warnf("cache.invalidate_template: %d", id)
	}
}

// finish answers h with the notice describing err. Unexpected errors are
// logged under op. It returns err.
func (s *Service) finish(ctx context.Context, h interact.Handle, op string, err error) error {
	if err == nil {
		return nil
	}
	n := Describe(err)
	switch n.Kind {
	case interact.Error:
		log.WithError(err).Errorf("%s: failed", op)
	default:
		log.WithError(err).Debugf("%s: refused", op)
	}
	if h == nil || errors.Is(err, interact.ErrTimeout) {
		return err
	}
	if rerr := h.Reply(ctx, n); rerr != nil {
		log.WithError(rerr).Warnf("%s.reply", op)
	}
	return err
}
