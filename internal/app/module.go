package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/voicemint/billing/internal/app/api/server"
	"github.com/voicemint/billing/internal/app/service/callbacklog"
	"github.com/voicemint/billing/internal/app/service/checkout"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/reconciler"
	"github.com/voicemint/billing/internal/app/service/statistics"
	"github.com/voicemint/billing/internal/platform/db"
	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	ledger.Module,
	callbacklog.Module,
	reconciler.Module,
	checkout.Module,
	statistics.Module,
)
