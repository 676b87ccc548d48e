package checkout

import (
	"go.uber.org/fx"

	"github.com/voicemint/billing/internal/platform/phonepe"
)

// Module exposes the checkout initiator and the gateway client via Fx.
var Module = fx.Options(
	fx.Provide(phonepe.NewClient),
	fx.Provide(NewService),
)
