package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/bookrental/internal/app/api/server"
	"github.com/fatflowers/bookrental/internal/app/service/catalog"
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/service/notification"
	"github.com/fatflowers/bookrental/internal/app/service/payment_callback"
	"github.com/fatflowers/bookrental/internal/app/service/plan"
	"github.com/fatflowers/bookrental/internal/app/service/rental"
	"github.com/fatflowers/bookrental/internal/app/service/statistics"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/app/service/sweeper"
	"github.com/fatflowers/bookrental/internal/platform/cache"
	"github.com/fatflowers/bookrental/internal/platform/db"
	"github.com/fatflowers/bookrental/internal/platform/mq"
	"github.com/fatflowers/bookrental/internal/platform/objectstore"
	"github.com/fatflowers/bookrental/pkg/config"
	"github.com/fatflowers/bookrental/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	objectstore.Module,
	cache.Module,
	mq.Module,
	server.Module,
	catalog.Module,
	notification.Module,
	plan.Module,
	subscription.Module,
	ebook.Module,
	rental.Module,
	payment_callback.Module,
	sweeper.Module,
	statistics.Module,
)
