package plan

import (
	"go.uber.org/fx"

	"github.com/fatflowers/bookrental/internal/app/store"
)

// Module exposes the plan catalog via Fx.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(store.NewPlanStore, fx.As(new(Repository))),
		NewService,
	),
)
