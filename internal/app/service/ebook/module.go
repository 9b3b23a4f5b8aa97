package ebook

import (
	"go.uber.org/fx"

	"github.com/fatflowers/bookrental/internal/app/service/catalog"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
)

var Module = fx.Options(
	fx.Provide(
		func(c *catalog.Service) BookCatalog { return c },
		func(s *subscription.Service) SubscriptionGate { return s },
	),
	fx.Provide(NewService),
)
