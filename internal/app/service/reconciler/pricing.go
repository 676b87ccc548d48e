package reconciler

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/types"
)

// gstDivisor removes the 18% GST component from a paid total. Rounding the
// result is the sole mechanism mapping a paid amount back to a product tier,
// so tier prices must stay unambiguous after tax removal.
const gstDivisor = 1.18

type GrantKind string

const (
	// GrantKindCredits tops up the shared common-credits balance.
	GrantKindCredits GrantKind = "credits"
	// GrantKindAllowance tops up one service's pro allowance.
	GrantKindAllowance GrantKind = "allowance"
)

// Grant is the resolved ledger delta for a completed purchase.
type Grant struct {
	Kind       GrantKind     `json:"kind"`
	Service    types.Service `json:"service,omitempty"`
	Credits    int64         `json:"credits,omitempty"`
	Characters int64         `json:"characters,omitempty"`
	// ServiceFallback is set when a pro-tier purchase carried an unknown
	// product name and was attributed to the default service. It must be
	// surfaced to operators, never swallowed.
	ServiceFallback bool `json:"service_fallback,omitempty"`
}

// Column returns the ledger column this grant applies to.
func (g *Grant) Column() string {
	if g.Kind == GrantKindAllowance {
		return g.Service.AllowanceColumn()
	}
	return "common_credits"
}

// Delta returns the grant size in the unit of its column.
func (g *Grant) Delta() int64 {
	if g.Kind == GrantKindAllowance {
		return g.Characters
	}
	return g.Credits
}

var explicitCreditsRe = regexp.MustCompile(`^([0-9]+)_credits$`)

// BaseAmount converts a paid amount in minor units to the rounded pre-tax
// rupee amount used for grant resolution.
func BaseAmount(amountPaisa int64) int64 {
	total := float64(amountPaisa) / 100.0
	return int64(math.Round(total / gstDivisor))
}

// ResolveGrant maps a rounded pre-tax amount and the transaction's product
// name to a ledger delta. Resolution order: pro tier by price, explicit
// "<N>_credits" product names, then the configured credit packs.
func ResolveGrant(cfg *config.Config, baseAmount int64, productName string) (*Grant, error) {
	if cfg.Pricing.ProBaseAmount > 0 && baseAmount == cfg.Pricing.ProBaseAmount {
		svc, ok := types.ParseService(productName)
		if !ok {
			// Likely a new product sharing the pro price point; attribute to
			// TTS but flag it so pricing drift is caught.
			svc = types.ServiceTTS
		}
		return &Grant{
			Kind:            GrantKindAllowance,
			Service:         svc,
			Characters:      cfg.Pricing.ProCharacters,
			ServiceFallback: !ok,
		}, nil
	}

	if m := explicitCreditsRe.FindStringSubmatch(productName); m != nil {
		credits, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || credits <= 0 {
			return nil, fmt.Errorf("%w: invalid credits product %q", ErrUnrecognizedAmount, productName)
		}
		return &Grant{Kind: GrantKindCredits, Credits: credits}, nil
	}

	if pack := cfg.GetCreditPackByBaseAmount(baseAmount); pack != nil {
		return &Grant{Kind: GrantKindCredits, Credits: pack.Credits}, nil
	}

	return nil, fmt.Errorf("%w: base amount %d, product %q", ErrUnrecognizedAmount, baseAmount, productName)
}
