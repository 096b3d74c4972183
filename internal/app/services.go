package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/fleet-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

type Services struct {
	Mirror   domainagg.MirrorAggregate
	Loads    services.LoadService
	Boats    services.BoatService
	Identity services.IdentityVerifier
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, metrics *observability.Metrics, rdb *redis.Client) (Services, error) {
	log.Info("Wiring services...")

	policy, ok := domainagg.ParseMissingMirrorPolicy(cfg.Mirror.MissingPolicy)
	if !ok {
		return Services{}, fmt.Errorf("unknown missing-mirror policy %q", cfg.Mirror.MissingPolicy)
	}
	hooks := aggregates.NewLogHooks(log, aggregates.NewObservabilityHooks(metrics))
	base := aggregates.BaseDeps{
		Log:      log,
		Hooks:    hooks,
		Locker:   wireBoatLocker(log, cfg.Redis, rdb),
		Attempts: cfg.Mirror.CASRetries,
	}
	mirror := aggregates.NewMirrorAggregate(aggregates.MirrorAggregateDeps{
		Base:     base,
		Entities: repos.Entity,
		Policy:   policy,
	})

	out := Services{
		Mirror: mirror,
		Loads: services.NewLoadService(services.LoadServiceDeps{
			Log:      log,
			Entities: repos.Entity,
			Mirror:   mirror,
			Guard:    aggregates.NewCASGuard(repos.Entity, cfg.Mirror.CASRetries, hooks),
			PageSize: cfg.PageSize,
		}),
		Boats: services.NewBoatService(log, repos.Entity),
	}

	if cfg.JWT.SecretKey != "" {
		v, err := services.NewJWTVerifier(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience)
		if err != nil {
			return Services{}, fmt.Errorf("init identity verifier: %w", err)
		}
		out.Identity = v
	} else {
		log.Warn("JWT_SECRET_KEY not set; requests are anonymous and boat creation is open")
	}
	return out, nil
}

// wireBoatLocker picks the cross-process redis lease when redis is
// configured, otherwise an in-process keyed mutex.
func wireBoatLocker(log *logger.Logger, cfg RedisConfig, rdb *redis.Client) aggregates.BoatLocker {
	if rdb == nil {
		return aggregates.NewKeyedMutexLocker()
	}
	log.Info("Boat writes serialized through redis", "addr", cfg.Addr)
	return aggregates.NewRedisBoatLocker(rdb, log, aggregates.RedisLockerConfig{
		TTL:  cfg.LockTTL,
		Wait: cfg.LockWait,
	})
}
