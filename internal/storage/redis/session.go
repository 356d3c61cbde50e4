package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pasteleia/bakery/internal/domain/auth"
)

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore implements auth.SessionStore with expiring keys.
type SessionStore struct {
	client goredis.UniversalClient
}

// NewSessionStore returns a SessionStore.
func NewSessionStore(client goredis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Put implements auth.SessionStore.
func (s *SessionStore) Put(ctx context.Context, key string, sess auth.Session, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(key), encodeSession(sess), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get implements auth.SessionStore.
func (s *SessionStore) Get(ctx context.Context, key string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	sess, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func sessionKey(key string) string {
	return "session:" + key
}

func encodeSession(sess auth.Session) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("userId")
	e.Str(sess.UserID)
	e.FieldStart("email")
	e.Str(sess.Email)
	e.FieldStart("expiresAt")
	e.Int64(sess.ExpiresAt.UnixMilli())
	e.ObjEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeSession(data []byte) (*auth.Session, error) {
	var sess auth.Session
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userId":
			sess.UserID, err = d.Str()
		case "email":
			sess.Email, err = d.Str()
		case "expiresAt":
			var ms int64
			ms, err = d.Int64()
			sess.ExpiresAt = time.UnixMilli(ms)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &sess, nil
}
