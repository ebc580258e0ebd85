package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/trading-academy/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvisioner() (*Provisioner, *MemoryStore) {
	store := NewMemoryStore()
	p := NewProvisioner(store, nil)
	p.bcryptCost = bcrypt.MinCost
	return p, store
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" PRO ")
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)

	_, err = ParseTier("platinum")
	assert.ErrorIs(t, err, ErrInvalidTier)

	assert.True(t, TierElite.Outranks(TierPro))
	assert.True(t, TierStarter.Outranks(TierNone))
	assert.False(t, TierStarter.Outranks(TierPro))
	assert.False(t, TierPro.Outranks(TierPro))
}

func TestProvisionCreatesProfile(t *testing.T) {
	p, store := newTestProvisioner()

	res, err := p.Provision(context.Background(), ProvisionRequest{Email: " Alice@Example.com ", FullName: "Alice", Tier: TierPro})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, res.TempPassword, tempPasswordLength)
	assert.Equal(t, "alice@example.com", res.Profile.Email)
	assert.Equal(t, TierPro, res.Profile.License)

	stored, err := store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, res.TempPassword, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(res.TempPassword)))
}

func TestProvisionNeverDowngrades(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvisioner()

	_, err := p.Provision(ctx, ProvisionRequest{Email: "bob@example.com", Tier: TierElite})
	require.NoError(t, err)

	res, err := p.Provision(ctx, ProvisionRequest{Email: "bob@example.com", Tier: TierStarter})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.Upgraded)
	assert.Empty(t, res.TempPassword)

	stored, err := store.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, TierElite, stored.License)
}

func TestProvisionUpgrades(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvisioner()

	first, err := p.Provision(ctx, ProvisionRequest{Email: "carol@example.com", Tier: TierStarter})
	require.NoError(t, err)

	res, err := p.Provision(ctx, ProvisionRequest{Email: "CAROL@example.com", Tier: TierPro})
	require.NoError(t, err)
	assert.True(t, res.Upgraded)
	assert.Equal(t, first.Profile.ID, res.Profile.ID)

	stored, err := store.FindByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, TierPro, stored.License)
}

func TestProvisionValidates(t *testing.T) {
	p, _ := newTestProvisioner()

	_, err := p.Provision(context.Background(), ProvisionRequest{Email: "nope", Tier: TierPro})
	_, ok := validation.AsFieldError(err)
	assert.True(t, ok)

	_, err = p.Provision(context.Background(), ProvisionRequest{Email: "a@b.co", Tier: Tier("gold")})
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestGeneratePasswordAlphabet(t *testing.T) {
	pw, err := generatePassword(32)
	require.NoError(t, err)
	for _, r := range pw {
		assert.Contains(t, tempPasswordAlphabet, string(r))
	}
}
