package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/totp"
)

// TwoFactorSetup is the provisioning material returned when TOTP
// enrollment begins: the otpauth URI for QR rendering, and the embedded
// shared secret for manual entry.
type TwoFactorSetup struct {
	OtpauthURI string
	Secret     string
}

// BeginTwoFactorSetup starts TOTP enrollment for the authenticated user.
// Enrollment is not active until ConfirmTwoFactorSetup succeeds.
func (f *Flow) BeginTwoFactorSetup(ctx context.Context) (TwoFactorSetup, error) {
	resp, err := f.api.SetupTwoFactor(ctx)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	secret, err := totp.SecretFromURL(resp.OtpauthURI)
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("flow: server returned unusable provisioning uri: %w", err)
	}
	return TwoFactorSetup{OtpauthURI: resp.OtpauthURI, Secret: secret}, nil
}

// ConfirmTwoFactorSetup verifies the enrollment code. Only on success does
// the session user's twoFactorEnabled flag flip to true.
func (f *Flow) ConfirmTwoFactorSetup(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := f.api.VerifyTwoFactor(ctx, code); err != nil {
		f.log.Warn("two-factor enrollment verification failed", "error", err)
		return err
	}
	f.session.SetTwoFactorEnabled(true)
	f.log.Info("two-factor enabled")
	return nil
}

// DisableTwoFactor turns TOTP enforcement off. Precondition: the session
// user must currently have two-factor enabled; otherwise the operation is
// rejected before any network call and callers redirect away.
func (f *Flow) DisableTwoFactor(ctx context.Context, code string) error {
	snap := f.session.Snapshot()
	if !snap.IsAuthenticated() || !snap.User.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := f.api.DisableTwoFactor(ctx, code); err != nil {
		f.log.Warn("two-factor disable failed", "error", err)
		return err
	}
	f.session.SetTwoFactorEnabled(false)
	f.log.Info("two-factor disabled")
	return nil
}
