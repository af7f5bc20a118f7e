package security

import (
	"github.com/smallbiznis/warden/internal/security/repository"
	"github.com/smallbiznis/warden/internal/security/service"
	"go.uber.org/fx"
)

var Module = fx.Module("security.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
