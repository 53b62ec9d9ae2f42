package totp

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

const (
	period = 30
	skew   = 1
)

var opts = pqtotp.ValidateOpts{
	Period:    period,
	Skew:      skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Authenticator generates secrets and checks codes for one issuer label.
type Authenticator struct {
	issuer string
	now    func() time.Time
}

func New(issuer string) *Authenticator {
	return &Authenticator{issuer: issuer, now: time.Now}
}

// NewSecret returns a fresh base32 shared secret for account.
func (a *Authenticator) NewSecret(account string) (string, error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: account,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app scans.
func (a *Authenticator) ProvisioningURI(secret, account string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", a.issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + a.issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// Validate reports whether code matches secret at the current time step
// or one step either side.
func (a *Authenticator) Validate(code, secret string) bool {
	ok, err := pqtotp.ValidateCustom(code, secret, a.now().UTC(), opts)
	return err == nil && ok
}

// ReplayWindow is how long an accepted code stays acceptable.
func ReplayWindow() time.Duration {
	return time.Duration((2*skew+1)*period) * time.Second
}
