package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/wolfman30/trading-academy/internal/validation"
	"github.com/wolfman30/trading-academy/pkg/logging"
	"golang.org/x/crypto/bcrypt"
)

const (
	tempPasswordLength   = 14
	tempPasswordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ProvisionRequest grants tier to the account behind Email.
type ProvisionRequest struct {
	Email    string
	FullName string
	Tier     Tier
}

// ProvisionResult reports what Provision did. TempPassword is only set for
// a newly created profile and is never stored in clear.
type ProvisionResult struct {
	Profile      *Profile
	Created      bool
	Upgraded     bool
	TempPassword string
}

// Provisioner finds or creates profiles and applies license upgrades.
type Provisioner struct {
	store      Store
	logger     *logging.Logger
	bcryptCost int
}

func NewProvisioner(store Store, logger *logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provisioner{store: store, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// Provision is safe to call repeatedly for the same purchase: an existing
// profile keeps its password and its tier never goes down.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if err := validation.Email("email", req.Email); err != nil {
		return nil, err
	}
	if _, ok := tierRank[req.Tier]; !ok {
		return nil, ErrInvalidTier
	}
	email := validation.NormalizeEmail(req.Email)

	profile, err := p.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return p.create(ctx, email, req)
	default:
		return nil, err
	}

	return p.upgrade(ctx, profile, req.Tier)
}

func (p *Provisioner) create(ctx context.Context, email string, req ProvisionRequest) (*ProvisionResult, error) {
	password, err := generatePassword(tempPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("accounts: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	profile, created, err := p.store.Create(ctx, &Profile{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		License:      req.Tier,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race with a concurrent provisioning of the same email.
		return p.upgrade(ctx, profile, req.Tier)
	}

	p.logger.Info("profile created", "profile_id", profile.ID, "license", profile.License)
	return &ProvisionResult{Profile: profile, Created: true, TempPassword: password}, nil
}

func (p *Provisioner) upgrade(ctx context.Context, profile *Profile, tier Tier) (*ProvisionResult, error) {
	if !tier.Outranks(profile.License) {
		return &ProvisionResult{Profile: profile}, nil
	}
	if err := p.store.SetLicense(ctx, profile.ID, tier); err != nil {
		return nil, err
	}
	p.logger.Info("license upgraded", "profile_id", profile.ID, "from", profile.License, "to", tier)
	profile.License = tier
	return &ProvisionResult{Profile: profile, Upgraded: true}, nil
}

func generatePassword(n int) (string, error) {
	size := big.NewInt(int64(len(tempPasswordAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(tempPasswordAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
