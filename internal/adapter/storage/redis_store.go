package storage

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/airship/tripstore/internal/core/domain"
	"github.com/airship/tripstore/internal/port"
)

const (
	productKeyPrefix = "products:"
	scanBatchSize    = 100
)

// Hash field names. The backing store keeps every value as text; decode and
// encode below are the only places aware of that.
const (
	fieldID                = "id"
	fieldTitle             = "title"
	fieldPassengerCapacity = "passenger_capacity"
	fieldMaximumSpeed      = "maximum_speed"
	fieldInStock           = "in_stock"
)

// createProductScript stores the product hash only when the key is absent,
// making create-uniqueness a single atomic operation.
var createProductScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 1 then
	return 0
end
redis.call('HSET', key,
	'id', ARGV[1],
	'title', ARGV[2],
	'passenger_capacity', ARGV[3],
	'maximum_speed', ARGV[4],
	'in_stock', ARGV[5])
return 1
`)

// RedisStore is the key-value product catalog. Every product lives under a
// single key derived from its id, so reads and existence checks are point
// lookups; only List scans the keyspace.
type RedisStore struct {
	client *redis.Client
}

var _ port.ProductStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func productKey(productID string) string {
	return productKeyPrefix + productID
}

// decodeProduct converts the text-only hash representation back into a typed
// record.
func decodeProduct(hash map[string]string) (domain.Product, error) {
	capacity, err := strconv.Atoi(hash[fieldPassengerCapacity])
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode passenger_capacity: %w", err)
	}
	speed, err := strconv.Atoi(hash[fieldMaximumSpeed])
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode maximum_speed: %w", err)
	}
	stock, err := strconv.Atoi(hash[fieldInStock])
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode in_stock: %w", err)
	}
	return domain.Product{
		ID:                hash[fieldID],
		Title:             hash[fieldTitle],
		PassengerCapacity: capacity,
		MaximumSpeed:      speed,
		InStock:           stock,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, productID string) (*domain.Product, error) {
	hash, err := s.client.HGetAll(ctx, productKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrProductNotFound, productID)
	}
	product, err := decodeProduct(hash)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *RedisStore) Create(ctx context.Context, product domain.Product) error {
	created, err := createProductScript.Run(ctx, s.client,
		[]string{productKey(product.ID)},
		product.ID,
		product.Title,
		product.PassengerCapacity,
		product.MaximumSpeed,
		product.InStock,
	).Int()
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: %s", port.ErrProductExists, product.ID)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, productID string, fields domain.ProductUpdate) error {
	key := productKey(productID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", port.ErrProductNotFound, productID)
	}

	values := make([]any, 0, 8)
	if fields.Title != nil {
		values = append(values, fieldTitle, *fields.Title)
	}
	if fields.PassengerCapacity != nil {
		values = append(values, fieldPassengerCapacity, *fields.PassengerCapacity)
	}
	if fields.MaximumSpeed != nil {
		values = append(values, fieldMaximumSpeed, *fields.MaximumSpeed)
	}
	if fields.InStock != nil {
		values = append(values, fieldInStock, *fields.InStock)
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, productID string) error {
	deleted, err := s.client.Del(ctx, productKey(productID)).Result()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", port.ErrProductNotFound, productID)
	}
	return nil
}

// DecrementStock subtracts amount from the stock field in a single HINCRBY
// and returns the resulting value. There is deliberately no floor at zero.
func (s *RedisStore) DecrementStock(ctx context.Context, productID string, amount int) (int, error) {
	value, err := s.client.HIncrBy(ctx, productKey(productID), fieldInStock, -int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return int(value), nil
}

// List scans the whole catalog, filters titles against filterTerm and
// paginates the filtered key set. Products are fetched lazily while the
// returned sequence is consumed. The filter term is treated as a regex
// fragment wrapped in .* on both sides, so plain terms behave as a
// case-insensitive substring match.
func (s *RedisStore) List(ctx context.Context, filterTerm string, page, perPage int) (iter.Seq2[domain.Product, error], int, error) {
	var keys []string
	it := s.client.Scan(ctx, 0, productKey("*"), scanBatchSize).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	if err := it.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}

	if filterTerm != "" {
		pattern, err := regexp.Compile("(?i).*" + filterTerm + ".*")
		if err != nil {
			return nil, 0, fmt.Errorf("compile title filter: %w", err)
		}
		filtered := keys[:0]
		for _, key := range keys {
			title, err := s.client.HGet(ctx, key, fieldTitle).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, 0, fmt.Errorf("filter products: %w", err)
			}
			if pattern.MatchString(title) {
				filtered = append(filtered, key)
			}
		}
		keys = filtered
	}

	total := len(keys)

	if page > 0 && perPage > 0 {
		start := min((page-1)*perPage, total)
		end := min(start+perPage, total)
		keys = keys[start:end]
	}

	seq := func(yield func(domain.Product, error) bool) {
		for _, key := range keys {
			hash, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				yield(domain.Product{}, fmt.Errorf("list products: %w", err))
				return
			}
			product, err := decodeProduct(hash)
			if !yield(product, err) {
				return
			}
		}
	}
	return seq, total, nil
}
