// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"

	"github.com/redis/go-redis/v9"
)

const credentialKeyPrefix = "shop_session:"

// RedisCredentialStore implements models.CredentialStore over redis. The app
// installation flow writes one JSON document per shop domain; the pipeline
// reads it fresh on every webhook, never caching tokens in process.
type RedisCredentialStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisCredentialStore(client *redis.Client, log logger.Logger) *RedisCredentialStore {
	return &RedisCredentialStore{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "credential-store"}),
	}
}

// FindByDomain returns the stored credential for domain, or (nil, nil) when
// none exists.
func (s *RedisCredentialStore) FindByDomain(ctx context.Context, domain string) (*models.ShopCredential, error) {
	if domain == "" {
		return nil, nil
	}

	val, err := s.client.Get(ctx, credentialKeyPrefix+domain).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("credential lookup for %s: %w", domain, err)
	}

	var cred models.ShopCredential
	if err := json.Unmarshal([]byte(val), &cred); err != nil {
		return nil, fmt.Errorf("decode credential for %s: %w", domain, err)
	}

	if cred.IsExpired() {
		s.logger.Warn("stored credential expired", map[string]interface{}{
			"domain":    domain,
			"expiresAt": cred.ExpiresAt,
		})
		return nil, nil
	}

	return &cred, nil
}

// Save stores a credential for a shop domain. Used by the installation flow
// and by tests; the webhook pipeline itself never writes credentials.
func (s *RedisCredentialStore) Save(ctx context.Context, cred *models.ShopCredential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential for %s: %w", cred.Domain, err)
	}
	if err := s.client.Set(ctx, credentialKeyPrefix+cred.Domain, data, 0).Err(); err != nil {
		return fmt.Errorf("store credential for %s: %w", cred.Domain, err)
	}
	return nil
}
