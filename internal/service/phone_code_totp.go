package service

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPCodeProvider issues SMS codes as time-based one-time passwords over a
// long period, so a code stays valid for about Period seconds.
type TOTPCodeProvider struct {
	Issuer    string
	Period    uint
	Skew      uint
	Digits    otp.Digits
	Algorithm otp.Algorithm
}

func NewTOTPCodeProvider(issuer string, ttl time.Duration) *TOTPCodeProvider {
	period := uint(ttl / time.Second)
	return &TOTPCodeProvider{
		Issuer:    issuer,
		Period:    period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (p *TOTPCodeProvider) GenerateSecret(phone string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      fallbackIssuer(p.Issuer),
		AccountName: phone,
		Period:      p.period(),
		Digits:      p.digits(),
		Algorithm:   p.algorithm(),
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

func (p *TOTPCodeProvider) Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, p.opts())
}

func (p *TOTPCodeProvider) Validate(secret string, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at, p.opts())
	return err == nil && ok
}

func (p *TOTPCodeProvider) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    p.period(),
		Skew:      p.skew(),
		Digits:    p.digits(),
		Algorithm: p.algorithm(),
	}
}

func (p *TOTPCodeProvider) period() uint {
	if p.Period == 0 {
		return 300
	}
	return p.Period
}

func (p *TOTPCodeProvider) skew() uint {
	return p.Skew
}

func (p *TOTPCodeProvider) digits() otp.Digits {
	if p.Digits == 0 {
		return otp.DigitsSix
	}
	return p.Digits
}

func (p *TOTPCodeProvider) algorithm() otp.Algorithm {
	return p.Algorithm
}

func fallbackIssuer(issuer string) string {
	if strings.TrimSpace(issuer) == "" {
		return "PetCare"
	}
	return issuer
}
