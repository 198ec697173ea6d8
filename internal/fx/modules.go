package fx

import (
	"go.uber.org/fx"

	"github.com/adrianmirek/darterassistant-sub002/internal/config"
	"github.com/adrianmirek/darterassistant-sub002/internal/database"
	"github.com/adrianmirek/darterassistant-sub002/internal/httpapi"
	"github.com/adrianmirek/darterassistant-sub002/internal/logger"
	"github.com/adrianmirek/darterassistant-sub002/internal/nakka"
	"github.com/adrianmirek/darterassistant-sub002/internal/repository"
	"github.com/adrianmirek/darterassistant-sub002/internal/service"
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	database.Module,
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewThrowRepository),
	fx.Provide(repository.NewLockRepository),
	fx.Provide(func(r *repository.MatchRepository) service.MatchStore { return r }),
	fx.Provide(func(r *repository.ThrowRepository) service.ThrowStore { return r }),
	fx.Provide(func(r *repository.LockRepository) service.LockStore { return r }),
	// nakka
	fx.Provide(nakka.NewClient),
	fx.Provide(func(c *nakka.Client) service.NakkaSource { return c }),
	// svc
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewThrowService),
	fx.Provide(service.NewLockService),
	fx.Provide(service.NewImportService),
	// http
	fx.Provide(func(
		matches *service.MatchService,
		locks *service.LockService,
		throws *service.ThrowService,
		stats *service.StatsService,
		imports *service.ImportService,
	) *httpapi.Handler {
		return httpapi.NewHandler(matches, locks, throws, stats, imports)
	}),
)
