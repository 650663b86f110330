package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/store"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

// CartService owns one Store per user. A store is loaded from storage the
// first time its user is seen and kept for the life of the process.
type CartService struct {
	mu       sync.Mutex
	stores   map[uuid.UUID]*cartEntry
	storage  store.Storage
	products ProductFinder
}

// cartEntry lets callers for one user wait on its first load without holding
// the service lock.
type cartEntry struct {
	load  sync.Once
	store *store.Store
}

func NewCartService(storage store.Storage, products ProductFinder) *CartService {
	return &CartService{
		stores:   map[uuid.UUID]*cartEntry{},
		storage:  storage,
		products: products,
	}
}

func (svc *CartService) Store(c context.Context, userId uuid.UUID) *store.Store {
	svc.mu.Lock()
	entry, ok := svc.stores[userId]
	if !ok {
		entry = &cartEntry{store: store.NewStore(svc.storage, store.CartKey(userId))}
		svc.stores[userId] = entry
	}
	svc.mu.Unlock()

	entry.load.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "CartService Store").
			Str(constants.KEY_USER_ID, userId.String()).
			Logger()
		logger.Info().Msg("loading cart for user")
		entry.store.Load(logger.WithContext(c))
	})
	return entry.store
}

func (svc *CartService) GetCart(c context.Context, userId uuid.UUID) store.Snapshot {
	c, span := otel.Tracer.Start(c, "CartService GetCart")
	defer span.End()

	return svc.Store(c, userId).Snapshot()
}

func (svc *CartService) AddCartItem(
	c context.Context,
	userId uuid.UUID,
	param request.AddCartItem,
) (store.Snapshot, error) {
	c, span := otel.Tracer.Start(c, "CartService AddCartItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService AddCartItem").
		Str(constants.KEY_USER_ID, userId.String()).
		Int64(constants.KEY_PRODUCT_ID, param.ProductId).
		Int(constants.KEY_QUANTITY, param.Quantity).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Trace().Msg("finding product")
	product, err := svc.products.FindProductById(c, param.ProductId)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Snapshot{}, err
	}
	logger.Trace().Msg("found product")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding product to cart").Logger()
	snapshot := svc.Store(c, userId).Add(c, product, param.Quantity)
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, snapshot.ItemsCount).Msg("added product to cart")

	return snapshot, nil
}

func (svc *CartService) UpdateCartItem(
	c context.Context,
	userId uuid.UUID,
	productId int64,
	quantity int,
) store.Snapshot {
	c, span := otel.Tracer.Start(c, "CartService UpdateCartItem")
	defer span.End()

	return svc.Store(c, userId).UpdateQuantity(c, productId, quantity)
}

func (svc *CartService) RemoveCartItem(c context.Context, userId uuid.UUID, productId int64) store.Snapshot {
	c, span := otel.Tracer.Start(c, "CartService RemoveCartItem")
	defer span.End()

	return svc.Store(c, userId).Remove(c, productId)
}

func (svc *CartService) ClearCart(c context.Context, userId uuid.UUID) store.Snapshot {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	return svc.Store(c, userId).Clear(c)
}
