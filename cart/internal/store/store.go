package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
)

var ErrCheckoutInProgress = errors.New("checkout already in progress for this cart")

// Product is the catalog snapshot copied into a line when it is first added.
type Product struct {
	ID        int64
	Title     string
	Price     decimal.Decimal
	Thumbnail string
}

type Line struct {
	ProductID int64           `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Snapshot struct {
	Lines      []Line          `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
}

// Store is one customer's cart. Every mutation runs under mu and is written
// through to storage before the lock is released. At most one checkout holds
// the cart at a time.
type Store struct {
	mu          sync.Mutex
	key         string
	storage     Storage
	lines       []Line
	checkingOut bool
}

func NewStore(storage Storage, key string) *Store {
	return &Store{key: key, storage: storage, lines: []Line{}}
}

func (s *Store) Key() string {
	return s.key
}

// Load replaces the in-memory lines with the persisted ones. A missing or
// unreadable slot yields an empty cart.
func (s *Store) Load(c context.Context) Snapshot {
	c, span := otel.Tracer.Start(c, "Store Load", trace.WithAttributes(attribute.String(constants.KEY_SLOT_KEY, s.key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store Load").
		Str(constants.KEY_SLOT_KEY, s.key).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = []Line{}

	logger = logger.With().Str(constants.KEY_PROCESS, "reading slot").Logger()
	logger.Trace().Msg("reading slot")
	raw, err := s.storage.Get(c, s.key)
	if err != nil {
		if errors.Is(err, ErrSlotEmpty) {
			logger.Info().Msg("slot is empty, starting with empty cart")
			return s.snapshot()
		}
		err = fmt.Errorf("failed reading slot with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return s.snapshot()
	}
	logger.Trace().Msg("read slot")

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding slot").Logger()
	logger.Trace().Msg("decoding slot")
	decoded := []Line{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		err = fmt.Errorf("failed decoding slot with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return s.snapshot()
	}
	s.lines = normalize(decoded)
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, s.itemsCount()).Msg("loaded cart")

	return s.snapshot()
}

// Add merges quantity into the line for product, appending a new line when
// the product is not in the cart yet. Quantities below one count as one.
func (s *Store) Add(c context.Context, product Product, quantity int) Snapshot {
	c, span := otel.Tracer.Start(c, "Store Add")
	defer span.End()

	if quantity < 1 {
		quantity = 1
	}

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store Add").
		Str(constants.KEY_SLOT_KEY, s.key).
		Int64(constants.KEY_PRODUCT_ID, product.ID).
		Int(constants.KEY_QUANTITY, quantity).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
		logger.Info().Int("merged", s.lines[i].Quantity).Msg("merged quantity into existing line")
	} else {
		s.lines = append(s.lines, Line{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Thumbnail: product.Thumbnail,
			Quantity:  quantity,
		})
		logger.Info().Msg("appended line")
	}

	s.persist(c)
	return s.snapshot()
}

func (s *Store) Remove(c context.Context, productID int64) Snapshot {
	c, span := otel.Tracer.Start(c, "Store Remove")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store Remove").
		Str(constants.KEY_SLOT_KEY, s.key).
		Int64(constants.KEY_PRODUCT_ID, productID).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(productID)
	logger.Info().Msg("removed line")

	s.persist(c)
	return s.snapshot()
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line; unknown ids are ignored.
func (s *Store) UpdateQuantity(c context.Context, productID int64, quantity int) Snapshot {
	c, span := otel.Tracer.Start(c, "Store UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store UpdateQuantity").
		Str(constants.KEY_SLOT_KEY, s.key).
		Int64(constants.KEY_PRODUCT_ID, productID).
		Int(constants.KEY_QUANTITY, quantity).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch i := s.indexOf(productID); {
	case quantity <= 0:
		s.remove(productID)
		logger.Info().Msg("removed line")
	case i >= 0:
		s.lines[i].Quantity = quantity
		logger.Info().Msg("updated quantity")
	default:
		logger.Info().Msg("line not in cart")
	}

	s.persist(c)
	return s.snapshot()
}

func (s *Store) Clear(c context.Context) Snapshot {
	c, span := otel.Tracer.Start(c, "Store Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store Clear").
		Str(constants.KEY_SLOT_KEY, s.key).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = []Line{}
	logger.Info().Msg("cleared cart")

	s.persist(c)
	return s.snapshot()
}

// BeginCheckout reserves the cart for one checkout and returns the lines to
// charge. It fails with ErrCheckoutInProgress until EndCheckout is called.
func (s *Store) BeginCheckout() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkingOut {
		return Snapshot{}, ErrCheckoutInProgress
	}
	s.checkingOut = true
	return s.snapshot(), nil
}

func (s *Store) EndCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkingOut = false
}

// RemoveLines takes the charged quantities out of the cart. Lines added or
// increased after the charge was priced keep the difference.
func (s *Store) RemoveLines(c context.Context, charged []Line) Snapshot {
	c, span := otel.Tracer.Start(c, "Store RemoveLines")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Store RemoveLines").
		Str(constants.KEY_SLOT_KEY, s.key).
		Int(constants.KEY_CART_LINES, len(charged)).
		Logger()
	c = logger.WithContext(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range charged {
		i := s.indexOf(line.ProductID)
		if i < 0 {
			continue
		}
		if s.lines[i].Quantity <= line.Quantity {
			s.remove(line.ProductID)
			continue
		}
		s.lines[i].Quantity -= line.Quantity
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, s.itemsCount()).Msg("removed charged lines")

	s.persist(c)
	return s.snapshot()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line{}, s.lines...)
}

func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

func (s *Store) ItemsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsCount()
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{
		Lines:      append([]Line{}, s.lines...),
		Total:      s.total(),
		ItemsCount: s.itemsCount(),
	}
}

func (s *Store) total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (s *Store) itemsCount() int {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

func (s *Store) indexOf(productID int64) int {
	for i, line := range s.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) remove(productID int64) {
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	s.lines = kept
}

// persist writes the whole ordered cart to storage. Failures are logged only.
func (s *Store) persist(c context.Context) {
	c, span := otel.Tracer.Start(c, "Store persist")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_PROCESS, "persisting cart").Logger()

	raw, err := json.Marshal(s.lines)
	if err != nil {
		err = fmt.Errorf("failed encoding cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if err := s.storage.Set(c, s.key, raw); err != nil {
		err = fmt.Errorf("failed persisting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Trace().Msg("persisted cart")
}

// normalize merges duplicate ids and drops non-positive quantities so a
// hand-edited slot cannot break the one-line-per-product rule.
func normalize(lines []Line) []Line {
	normalized := make([]Line, 0, len(lines))
	index := map[int64]int{}
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			normalized[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(normalized)
		normalized = append(normalized, line)
	}
	return normalized
}
