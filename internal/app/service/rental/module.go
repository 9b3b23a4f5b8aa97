package rental

import (
	"go.uber.org/fx"

	"github.com/fatflowers/bookrental/internal/app/service/catalog"
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/service/notification"
	"github.com/fatflowers/bookrental/internal/app/service/plan"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/app/store"
)

// Module exposes the rental engine via Fx.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(store.NewRentalStore, fx.As(new(Repository))),
	),
	fx.Provide(
		func(c *catalog.Service) BookCatalog { return c },
		func(p *plan.Service) PlanProvider { return p },
		func(s *subscription.Service) SubscriptionChecker { return s },
		func(e *ebook.Service) LinkIssuer { return e },
		func(n *notification.Service) Notifier { return n },
	),
	fx.Provide(NewService),
)
