// Package logger provee el logger Zap del servicio con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una única instancia global inicializada con Init().
//   - Context scoping: cada request o ejecución de saga puede llevar su propio
//     logger con campos extra (execution_id, username, node) sin reconstruir el core.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// # Uso
//
// En main.go:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.register"))
//	log.Info("user registered", logger.Username(name), logger.Node(node))
package logger
