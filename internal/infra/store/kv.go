// Package store provides a namespaced key-value persistence layer for player
// state, playlists and player configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store closed")

// Namespace is a key-value view scoped to one name, such as "PlayerState:<id>".
// Writes to a key are last-writer-wins.
type Namespace interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend hands out namespaces.
type Backend interface {
	Namespace(name string) Namespace
	Close() error
}

// GetString returns the string at key or def when it is missing.
func GetString(ctx context.Context, ns Namespace, key, def string) (string, error) {
	v, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return string(v), nil
}

// PutString stores a string value.
func PutString(ctx context.Context, ns Namespace, key, value string) error {
	return ns.Put(ctx, key, []byte(value))
}

// GetInt64 returns the integer at key or def when it is missing.
func GetInt64(ctx context.Context, ns Namespace, key string, def int64) (int64, error) {
	v, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return def, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return n, nil
}

// PutInt64 stores an integer value.
func PutInt64(ctx context.Context, ns Namespace, key string, value int64) error {
	return ns.Put(ctx, key, []byte(strconv.FormatInt(value, 10)))
}

// GetInt returns the int at key or def when it is missing.
func GetInt(ctx context.Context, ns Namespace, key string, def int) (int, error) {
	n, err := GetInt64(ctx, ns, key, int64(def))
	return int(n), err
}

// PutInt stores an int value.
func PutInt(ctx context.Context, ns Namespace, key string, value int) error {
	return PutInt64(ctx, ns, key, int64(value))
}

// GetFloat returns the float at key or def when it is missing.
func GetFloat(ctx context.Context, ns Namespace, key string, def float64) (float64, error) {
	v, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return def, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return f, nil
}

// PutFloat stores a float value.
func PutFloat(ctx context.Context, ns Namespace, key string, value float64) error {
	return ns.Put(ctx, key, []byte(strconv.FormatFloat(value, 'g', -1, 64)))
}

// GetBool returns the bool at key or def when it is missing.
func GetBool(ctx context.Context, ns Namespace, key string, def bool) (bool, error) {
	v, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(string(v))
	if err != nil {
		return def, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return b, nil
}

// PutBool stores a bool value.
func PutBool(ctx context.Context, ns Namespace, key string, value bool) error {
	return ns.Put(ctx, key, []byte(strconv.FormatBool(value)))
}
