package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

const (
	roomKeyPrefix   = "room:"
	playerKeyPrefix = "player:"
	openRoomsKey    = "rooms:open"
	roomSequenceKey = "rooms:seq"

	emptyMessages = "[]"
)

// RoomRepository keeps rooms as flat hashes, the same shape the connect envelope carries.
type RoomRepository interface {
	Create(ctx context.Context, host string) (string, error)
	FindByPlayer(ctx context.Context, username string) (string, error)
	JoinOpen(ctx context.Context, username string) (string, error)
	GetByID(ctx context.Context, id string) (map[string]string, error)
	Update(ctx context.Context, id string, fields map[string]string) error
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

// Create opens a room hosted by host and lists it as waiting for a guest.
func (that *dbRoom) Create(ctx context.Context, host string) (string, error) {
	seq, err := that.client.Incr(ctx, roomSequenceKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate room id: %w", err)
	}

	id := "room_" + strconv.FormatInt(seq, 10)
	roomKey := roomKeyPrefix + id

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey,
			protocol.KeyRoomMember, host,
			protocol.KeyRoomGuest, protocol.NoGuest,
			protocol.KeyMessages, emptyMessages,
		)
		pipe.Expire(ctx, roomKey, that.ttl)
		pipe.SAdd(ctx, openRoomsKey, id)
		pipe.Set(ctx, playerKeyPrefix+host, id, that.ttl)

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	return id, nil
}

// FindByPlayer returns the live room username belongs to.
func (that *dbRoom) FindByPlayer(ctx context.Context, username string) (string, error) {
	id, err := that.client.Get(ctx, playerKeyPrefix+username).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.ErrRoomNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to get player room: %w", err)
	}

	exists, err := that.client.Exists(ctx, roomKeyPrefix+id).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check room: %w", err)
	}

	if exists == 0 {
		return "", apperror.ErrRoomNotFound
	}

	return id, nil
}

// JoinOpen seats username as the guest of a room waiting for one. Rooms that expired while
// waiting are skipped.
func (that *dbRoom) JoinOpen(ctx context.Context, username string) (string, error) {
	for {
		id, err := that.client.SPop(ctx, openRoomsKey).Result()
		if errors.Is(err, redis.Nil) {
			return "", apperror.ErrRoomNotFound
		}

		if err != nil {
			return "", fmt.Errorf("failed to pop open room: %w", err)
		}

		host, err := that.client.HGet(ctx, roomKeyPrefix+id, protocol.KeyRoomMember).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("failed to get room host: %w", err)
		}

		if host == username {
			if err = that.client.SAdd(ctx, openRoomsKey, id).Err(); err != nil {
				return "", fmt.Errorf("failed to keep room open: %w", err)
			}

			return id, nil
		}

		if err = that.seat(ctx, id, protocol.KeyRoomGuest, username); err != nil {
			return "", err
		}

		return id, nil
	}
}

func (that *dbRoom) seat(ctx context.Context, id, field, username string) error {
	roomKey := roomKeyPrefix + id

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey, field, username)
		pipe.Expire(ctx, roomKey, that.ttl)
		pipe.Set(ctx, playerKeyPrefix+username, id, that.ttl)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seat player: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (map[string]string, error) {
	fields, err := that.client.HGetAll(ctx, roomKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if len(fields) == 0 {
		return nil, apperror.ErrRoomNotFound
	}

	return fields, nil
}

// Update sets fields and refreshes the room TTL.
func (that *dbRoom) Update(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	values := make([]any, 0, 2*len(fields))
	for key, value := range fields {
		values = append(values, key, value)
	}

	roomKey := roomKeyPrefix + id

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey, values...)
		pipe.Expire(ctx, roomKey, that.ttl)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

// DeleteByID removes the room with its membership index.
func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	roomKey := roomKeyPrefix + id

	members, err := that.client.HMGet(ctx, roomKey, protocol.KeyRoomMember, protocol.KeyRoomGuest).Result()
	if err != nil {
		return fmt.Errorf("failed to get room members: %w", err)
	}

	keys := []string{roomKey}
	for _, member := range members {
		if name, ok := member.(string); ok && name != "" && name != protocol.NoGuest {
			keys = append(keys, playerKeyPrefix+name)
		}
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, openRoomsKey, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// Count returns the number of rooms still stored. Expired rooms are gone from the keyspace.
func (that *dbRoom) Count(ctx context.Context) (int, error) {
	var (
		count  int
		cursor uint64
	)

	for {
		keys, next, err := that.client.Scan(ctx, cursor, roomKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to count rooms: %w", err)
		}

		count += len(keys)
		if next == 0 {
			return count, nil
		}

		cursor = next
	}
}
