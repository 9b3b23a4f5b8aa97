package subscription

import (
	"go.uber.org/fx"

	"github.com/fatflowers/bookrental/internal/app/service/notification"
	"github.com/fatflowers/bookrental/internal/app/service/plan"
	"github.com/fatflowers/bookrental/internal/app/store"
)

// Module exposes the subscription service via Fx.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(store.NewSubscriptionStore, fx.As(new(Repository))),
		fx.Annotate(NewGormChangeLog, fx.As(new(ChangeLog))),
	),
	fx.Provide(
		func(p *plan.Service) PlanProvider { return p },
		func(n *notification.Service) Notifier { return n },
	),
	fx.Provide(NewService),
)
