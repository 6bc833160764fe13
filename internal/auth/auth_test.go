package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piotrgredowski/memes-ranker/internal/repo"
)

func TestOperator_LoginAndVerify(t *testing.T) {
	op, err := NewOperator("hunter2", "secret")
	require.NoError(t, err)

	token, err := op.Login("hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NoError(t, op.Verify(token))
}

func TestOperator_WrongPassword(t *testing.T) {
	op, err := NewOperator("hunter2", "secret")
	require.NoError(t, err)

	_, err = op.Login("guess")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestOperator_VerifyRejectsGarbage(t *testing.T) {
	op, err := NewOperator("hunter2", "secret")
	require.NoError(t, err)

	require.ErrorIs(t, op.Verify("not-a-token"), ErrBadToken)
}

func TestOperator_VerifyRejectsForeignSignature(t *testing.T) {
	op1, err := NewOperator("hunter2", "secret-one")
	require.NoError(t, err)
	op2, err := NewOperator("hunter2", "secret-two")
	require.NoError(t, err)

	token, err := op1.Login("hunter2")
	require.NoError(t, err)
	require.ErrorIs(t, op2.Verify(token), ErrBadToken)
}

func TestIdentity_EnsureCreatesOnce(t *testing.T) {
	store := repo.NewMemory()
	identity := NewIdentity(store)
	ctx := context.Background()

	created, err := identity.Ensure(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, created.Name)
	require.NotEmpty(t, created.Token)

	again, err := identity.Ensure(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
	require.Equal(t, created.Token, again.Token)
}

func TestIdentity_ResolveUnknownToken(t *testing.T) {
	identity := NewIdentity(repo.NewMemory())

	p, err := identity.Resolve(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestGenerateName_TwoWords(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := GenerateName()
		require.Len(t, strings.Fields(name), 2)
	}
}
