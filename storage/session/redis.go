package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/yair681/pirhei-aharon/core"
)

type redisStore struct {
	client *redis.Client
	appID  string
}

var _ core.SessionRegistry = (*redisStore)(nil)

// NewRedisStore builds a registry over redis. Keys are namespaced under
// the application id; records expire with the session.
func NewRedisStore(conf *core.Config) (core.SessionRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisStore{client: client, appID: conf.AppID}, nil
}

func (st *redisStore) key(uid string) string {
	return fmt.Sprintf("%s:session:%s", st.appID, uid)
}

func (st *redisStore) Put(ctx context.Context, rec core.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshaling session record")
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return st.client.Set(ctx, st.key(rec.UID), data, ttl).Err()
}

func (st *redisStore) Get(ctx context.Context, uid string) (core.SessionRecord, error) {
	data, err := st.client.Get(ctx, st.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.SessionRecord{}, core.ErrSessionNotFound
		}
		return core.SessionRecord{}, errors.Wrap(err, "reading session record")
	}
	var rec core.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.SessionRecord{}, errors.Wrap(err, "unmarshaling session record")
	}
	return rec, nil
}

func (st *redisStore) Delete(ctx context.Context, uid string) error {
	return st.client.Del(ctx, st.key(uid)).Err()
}
