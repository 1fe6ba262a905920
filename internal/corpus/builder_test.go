package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/omnicart/assistant/internal/catalog"
)

func oid(b byte) primitive.ObjectID {
	var id primitive.ObjectID
	id[11] = b
	return id
}

func testCatalog() *catalog.MemoryStore {
	store := catalog.NewMemoryStore()
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetCatalog(
		[]catalog.Product{
			{
				ID: oid(1), Title: "Portable Speaker", Description: "Compact bluetooth speaker",
				Price: 79.50, Rating: 4.5, Tags: []string{"audio", "bluetooth"},
				ShopID: oid(10), UpdatedAt: updated,
			},
			{
				ID: oid(2), Title: "Studio Headphones", Description: "Closed-back headphones",
				Price: 120, Rating: 4.8, Tags: []string{"audio"},
				ShopID: oid(10), UpdatedAt: updated,
			},
			{
				ID: oid(3), Title: "Ceramic Mug", Description: "A mug",
				Price: 12, Rating: 3.9, Tags: []string{"kitchen"},
				ShopID: oid(11), UpdatedAt: updated,
			},
		},
		[]catalog.Shop{
			{ID: oid(10), Name: "Audio Hub", OwnerName: "Dana Reyes", Address: "12 Sound Ave"},
			{ID: oid(11), Name: "Home Goods", OwnerName: "Ira Patel", Address: "4 Market St", Description: "Everything for the kitchen."},
		},
	)
	return store
}

func TestBuildProducts(t *testing.T) {
	builder := NewBuilder(testCatalog(), DefaultConfig(), nil)

	got, err := builder.BuildProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Products, 3)

	speaker := got.Products[0]
	assert.Equal(t, "Portable Speaker", speaker.Name)
	assert.Equal(t, "audio", speaker.Category, "category is the first tag")
	assert.Equal(t, "USD", speaker.Currency)
	assert.Equal(t, "Audio Hub", speaker.ShopName)
	assert.Equal(t, "Dana Reyes", speaker.OwnerName)
	assert.Equal(t, "12 Sound Ave", speaker.Location)
	assert.Equal(t, "/products/"+speaker.ProductID, speaker.URL)
	assert.Equal(t, "/shops/"+speaker.ShopID, speaker.ShopURL)
	assert.True(t, speaker.InStock)
	assert.Equal(t, "2026-03-01T12:00:00Z", speaker.LastUpdated)

	// Speaker and headphones share one tag and a shop: 2x1 + 1 = 3.
	// The mug shares nothing, so only the headphones cross-reference.
	require.Len(t, speaker.SimilarProducts, 1)
	assert.Equal(t, got.Products[1].ProductID, speaker.SimilarProducts[0])
	require.Len(t, speaker.SimilarProductDetails, 1)
	assert.Equal(t, "Studio Headphones", speaker.SimilarProductDetails[0].Name)
	assert.Equal(t, 120.0, speaker.SimilarProductDetails[0].Price)

	mug := got.Products[2]
	assert.Empty(t, mug.SimilarProducts)
	assert.Equal(t, "kitchen", mug.Category)
}

func TestBuildProducts_DefaultsWithoutTags(t *testing.T) {
	store := catalog.NewMemoryStore()
	store.SetCatalog(
		[]catalog.Product{{ID: oid(1), Title: "Mystery Box", Price: 5}},
		nil,
	)
	builder := NewBuilder(store, DefaultConfig(), nil)

	got, err := builder.BuildProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Products, 1)

	entry := got.Products[0]
	assert.Equal(t, "General", entry.Category)
	assert.Empty(t, entry.ShopID, "dangling shop reference normalizes to empty")
	assert.NotNil(t, entry.Tags)
	assert.NotNil(t, entry.Reviews)
}

func TestBuildShops(t *testing.T) {
	builder := NewBuilder(testCatalog(), DefaultConfig(), nil)
	ctx := context.Background()

	products, err := builder.BuildProducts(ctx)
	require.NoError(t, err)
	got, err := builder.BuildShops(ctx, products)
	require.NoError(t, err)
	require.Len(t, got.Shops, 2)

	audioHub := got.Shops[0]
	assert.Equal(t, "Audio Hub", audioHub.Name)
	assert.Equal(t, 4.65, audioHub.Rating, "mean of 4.5 and 4.8, rounded to 2 decimals")
	assert.Equal(t, 2, audioHub.TotalProducts)
	// Top products sorted by rating descending: headphones first.
	require.Len(t, audioHub.TopProducts, 2)
	assert.Equal(t, products.Products[1].ProductID, audioHub.TopProducts[0])
	assert.Equal(t, "Trusted retailer operated by Dana Reyes located at 12 Sound Ave.", audioHub.Description,
		"missing description is generated from owner and address")

	homeGoods := got.Shops[1]
	assert.Equal(t, "Everything for the kitchen.", homeGoods.Description)
	assert.Equal(t, 3.9, homeGoods.Rating)
}

func TestBuildShops_EmptyShop(t *testing.T) {
	store := catalog.NewMemoryStore()
	store.SetCatalog(nil, []catalog.Shop{
		{ID: oid(20), Name: "Ghost Shop", OwnerName: "No One", Address: "Nowhere"},
	})
	builder := NewBuilder(store, DefaultConfig(), nil)
	ctx := context.Background()

	products, err := builder.BuildProducts(ctx)
	require.NoError(t, err)
	got, err := builder.BuildShops(ctx, products)
	require.NoError(t, err)

	require.Len(t, got.Shops, 1)
	assert.Zero(t, got.Shops[0].Rating)
	assert.Zero(t, got.Shops[0].TotalProducts)
	assert.Empty(t, got.Shops[0].TopProducts)
}

func TestBuildProducts_NoShopBonusForShoplessProducts(t *testing.T) {
	// Dangling shop references leave ShopID empty; two shopless products do
	// not count as sharing a shop for similarity scoring.
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := catalog.NewMemoryStore()
	store.SetCatalog(
		[]catalog.Product{
			{ID: oid(1), Title: "Desk Lamp", Price: 35, Tags: []string{"lighting"},
				ShopID: oid(99), UpdatedAt: updated},
			{ID: oid(2), Title: "Wool Blanket", Price: 45, Tags: []string{"bedding"},
				ShopID: oid(99), UpdatedAt: updated},
		},
		nil,
	)
	builder := NewBuilder(store, DefaultConfig(), nil)

	got, err := builder.BuildProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Products, 2)
	for _, p := range got.Products {
		assert.Empty(t, p.ShopID)
		assert.Empty(t, p.SimilarProductDetails)
	}
}

func TestBuildAll_Idempotent(t *testing.T) {
	builder := NewBuilder(testCatalog(), DefaultConfig(), nil)
	ctx := context.Background()

	first, firstShops, err := builder.BuildAll(ctx)
	require.NoError(t, err)
	second, secondShops, err := builder.BuildAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Products, second.Products, "rebuild without catalog changes is identical apart from generated_at")
	assert.Equal(t, firstShops.Shops, secondShops.Shops)
}

func TestBuildProducts_ReadFailure(t *testing.T) {
	store := testCatalog()
	store.SetError(errors.New("connection reset"))
	builder := NewBuilder(store, DefaultConfig(), nil)

	_, err := builder.BuildProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read products")
}
