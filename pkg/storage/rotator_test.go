package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRotatorMovesToNextKeyOnFailure(t *testing.T) {
	r := NewKeyRotator([]string{"k1", "k2"}, time.Minute)

	var calls []string
	call := func(key string) (string, error) {
		calls = append(calls, key)
		if key == "k1" {
			return "", errors.New("rate limited")
		}
		return "https://img/" + key, nil
	}

	url, err := r.Do(call)
	require.NoError(t, err)
	assert.Equal(t, "https://img/k2", url)
	assert.Equal(t, []string{"k1", "k2"}, calls)

	calls = nil
	_, err = r.Do(call)
	require.NoError(t, err)
	assert.Equal(t, []string{"k2"}, calls, "rotation sticks to the key that worked")
}

func TestKeyRotatorCoolsDownAfterThreeFailures(t *testing.T) {
	r := NewKeyRotator([]string{"k1", "k2"}, time.Minute)

	var calls []string
	failing := func(key string) (string, error) {
		calls = append(calls, key)
		return "", fmt.Errorf("%s down", key)
	}

	for i := 0; i < keyFailureThreshold; i++ {
		_, err := r.Do(failing)
		assert.Error(t, err)
	}
	assert.Equal(t, 2, r.Cooling())

	calls = nil
	url, err := r.Do(func(key string) (string, error) {
		calls = append(calls, key)
		return "https://img/" + key, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img/k1", url)
	assert.Equal(t, []string{"k1"}, calls, "all keys cooling falls back to the first key")
}

func TestKeyRotatorRecoversAfterCooldown(t *testing.T) {
	r := NewKeyRotator([]string{"k1"}, 20*time.Millisecond)

	for i := 0; i < keyFailureThreshold; i++ {
		_, _ = r.Do(func(string) (string, error) { return "", errors.New("down") })
	}
	assert.Equal(t, 1, r.Cooling())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, r.Cooling())

	url, err := r.Do(func(key string) (string, error) { return "ok-" + key, nil })
	require.NoError(t, err)
	assert.Equal(t, "ok-k1", url)
}

func TestKeyRotatorInvalidImageDoesNotRotate(t *testing.T) {
	r := NewKeyRotator([]string{"k1", "k2"}, time.Minute)

	var calls []string
	for i := 0; i < 5; i++ {
		_, err := r.Do(func(key string) (string, error) {
			calls = append(calls, key)
			return "", fmt.Errorf("%w: bad bytes", ErrInvalidImage)
		})
		assert.ErrorIs(t, err, ErrInvalidImage)
	}

	assert.Len(t, calls, 5)
	assert.Equal(t, 0, r.Cooling())
}

func TestKeyRotatorWithoutKeys(t *testing.T) {
	_, err := NewKeyRotator(nil, time.Minute).Do(func(string) (string, error) { return "x", nil })
	assert.Error(t, err)
}
