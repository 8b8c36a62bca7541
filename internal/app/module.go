package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/Talha654/overlayPix-backend/internal/app/api/server"
	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/event"
	"github.com/Talha654/overlayPix-backend/internal/app/service/expiry"
	"github.com/Talha654/overlayPix-backend/internal/app/service/guest"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/platform/cache"
	"github.com/Talha654/overlayPix-backend/internal/platform/db"
	"github.com/Talha654/overlayPix-backend/internal/platform/paypal"
	"github.com/Talha654/overlayPix-backend/internal/platform/qrcode"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/internal/platform/stripe"
	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	storage.Module,
	stripe.Module,
	paypal.Module,
	revenuecat.Module,
	qrcode.Module,
	cache.Module,
	pricing.Module,
	discount.Module,
	payment.Module,
	audit.Module,
	expiry.Module,
	event.Module,
	guest.Module,
	server.Module,
)
