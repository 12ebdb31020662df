// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: Una sola instancia global inicializada con Init().
//   - Context Scoping: Cada request puede tener su propio logger "scoped" con campos
//     adicionales (request_id, service, flow) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Secrets: los tokens OAuth nunca se loguean completos; usar logger.Token()
//     que enmascara el valor (solo prefijo).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" o "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En controllers/engine (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("handshake started", logger.Service("twitter"), logger.Flow("oauth1"))
//
// Sin contexto (fallback a singleton):
//
//	logger.L().Info("application started")
package logger
