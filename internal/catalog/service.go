package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ItemCatalog/pkg/kit"
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrValidation    = errors.New("invalid item")
	ErrInvalidName   = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNegativePrice = fmt.Errorf("%w: price must not be negative", ErrValidation)
)

// Service enforces the catalog's business rules on top of a Store. It owns id
// and timestamp assignment and decides not-found before any mutation.
type Service struct {
	store   Store
	newID   func() string
	now     func() time.Time
	events  EventPublisher
	metrics *ServiceMetrics
	log     *zap.Logger
}

type Option func(*Service)

func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.newID = fn } }
func WithClock(fn func() time.Time) Option    { return func(s *Service) { s.now = fn } }
func WithEvents(p EventPublisher) Option      { return func(s *Service) { s.events = p } }
func WithMetrics(m *ServiceMetrics) Option    { return func(s *Service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option         { return func(s *Service) { s.log = l } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		newID:  uuid.NewString,
		now:    time.Now,
		events: NopPublisher{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// List returns every stored item, or only those whose name contains
// nameFilter (case-sensitive) when it is not empty.
func (s *Service) List(ctx context.Context, nameFilter string) ([]ItemDto, error) {
	const op = "Service.List"

	items, err := s.store.List(ctx)
	if err != nil {
		s.observe("list", err)
		return nil, kit.Wrap(op, err)
	}

	out := make([]ItemDto, 0, len(items))
	for _, it := range items {
		if nameFilter != "" && !strings.Contains(it.Name, nameFilter) {
			continue
		}
		out = append(out, it.AsDto())
	}
	s.observe("list", nil)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (ItemDto, error) {
	const op = "Service.Get"

	it, err := s.find(ctx, id)
	s.observe("get", err)
	if err != nil {
		return ItemDto{}, kit.Wrap(op, err)
	}
	return it.AsDto(), nil
}

func (s *Service) Create(ctx context.Context, req CreateItemDto) (ItemDto, error) {
	const op = "Service.Create"

	if err := validate(req.Name, req.Price); err != nil {
		s.observe("create", err)
		return ItemDto{}, kit.Wrap(op, err)
	}

	// Postgres keeps microseconds; the returned dto must match later reads.
	it := Item{
		ID:          s.newID(),
		Name:        req.Name,
		Price:       req.Price,
		CreatedDate: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Create(ctx, it); err != nil {
		s.fail(op, err, it.ID)
		return ItemDto{}, kit.Wrap(op, err)
	}
	s.observe("create", nil)
	s.log.Debug("item created", zap.String("id", it.ID))

	dto := it.AsDto()
	s.publish(ctx, EventItemCreated, it.ID, &dto)
	return dto, nil
}

// Update looks the item up first and only then writes. The lookup result is
// used for id and createdDate only; name and price come from req.
func (s *Service) Update(ctx context.Context, id string, req UpdateItemDto) error {
	const op = "Service.Update"

	if err := validate(req.Name, req.Price); err != nil {
		s.observe("update", err)
		return kit.Wrap(op, err)
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		s.observe("update", err)
		return kit.Wrap(op, err)
	}

	updated := existing.With(req.Name, req.Price)
	if err := s.store.Update(ctx, updated); err != nil {
		s.fail(op, err, id)
		return kit.Wrap(op, err)
	}
	s.observe("update", nil)
	s.log.Debug("item updated", zap.String("id", id))

	dto := updated.AsDto()
	s.publish(ctx, EventItemUpdated, id, &dto)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "Service.Delete"

	if _, err := s.find(ctx, id); err != nil {
		s.observe("delete", err)
		return kit.Wrap(op, err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.fail(op, err, id)
		return kit.Wrap(op, err)
	}
	s.observe("delete", nil)
	s.log.Debug("item deleted", zap.String("id", id))

	s.publish(ctx, EventItemDeleted, id, nil)
	return nil
}

func (s *Service) find(ctx context.Context, id string) (Item, error) {
	it, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (s *Service) fail(op string, err error, id string) {
	s.observe(strings.ToLower(strings.TrimPrefix(op, "Service.")), err)
	if errors.Is(err, ErrInvariantViolation) {
		s.log.Error("store invariant violated", zap.String("op", op), zap.String("id", id), zap.Error(err))
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.observe(op, err)
	}
}

func (s *Service) publish(ctx context.Context, typ, itemID string, dto *ItemDto) {
	ev := ItemEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ItemID:     itemID,
		Item:       dto,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish item event failed", zap.Error(err), zap.String("type", typ), zap.String("id", itemID))
	}
}

func validate(name string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
