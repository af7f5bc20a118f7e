package analytics

import (
	"github.com/smallbiznis/warden/internal/analytics/repository"
	"github.com/smallbiznis/warden/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
