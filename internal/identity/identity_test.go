package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nearhire_errors "nearhire/pkg/errors"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret")
	p := Principal{ID: uuid.New(), Name: "Alice"}

	token, err := v.Issue(p, time.Minute)
	require.NoError(t, err)

	got, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Issue(Principal{ID: uuid.New()}, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Parse(token)
	require.ErrorIs(t, err, nearhire_errors.ErrUnauthorized)
}

func TestParseRejectsExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Issue(Principal{ID: uuid.New()}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Parse(token)
	require.ErrorIs(t, err, nearhire_errors.ErrUnauthorized)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewVerifier("test-secret").Parse("not-a-token")
	require.ErrorIs(t, err, nearhire_errors.ErrUnauthorized)
}

func TestPrincipalContext(t *testing.T) {
	p := Principal{ID: uuid.New(), Name: "Alice"}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
