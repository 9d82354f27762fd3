package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mac-card-bot/types"
)

// RedisConvoStore keeps the transient conversation context (current step plus
// collected answers) per profile. The data is scratch space for one attempt,
// not durable business state, so it carries a TTL.
type RedisConvoStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisConvoStore(redisClient *RedisClient, ttlHours int) *RedisConvoStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 48 * time.Hour
	}

	return &RedisConvoStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisConvoStore) convoKey(telegramID int64) string {
	return s.client.generateKey("convo", fmt.Sprintf("%d", telegramID))
}

func (s *RedisConvoStore) GetConvo(telegramID int64) (*types.ConvoData, error) {
	var data types.ConvoData
	if err := s.client.Get(s.convoKey(telegramID), &data); err != nil {
		return nil, err
	}
	if data.Answers == nil {
		data.Answers = map[string]string{}
	}
	return &data, nil
}

func (s *RedisConvoStore) SetConvo(telegramID int64, data *types.ConvoData) error {
	return s.client.Set(s.convoKey(telegramID), data, s.ttl)
}

func (s *RedisConvoStore) ClearConvo(telegramID int64) error {
	return s.client.Del(s.convoKey(telegramID))
}

func (s *RedisConvoStore) ActiveProfileIDs() ([]int64, error) {
	keys, err := s.client.Keys(s.client.generateKey("convo", "*"))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) == 0 {
			continue
		}
		id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
