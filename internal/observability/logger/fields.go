package logger

import (
	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Service crea un campo para el servicio/proveedor OAuth (twitter, facebook...).
func Service(v string) zap.Field {
	return zap.String("service", v)
}

// Flow crea un campo para la variante de flujo ("oauth1" | "oauth2").
func Flow(v string) zap.Field {
	return zap.String("flow", v)
}

// Endpoint crea un campo para el endpoint del proveedor llamado.
func Endpoint(v string) zap.Field {
	return zap.String("endpoint", v)
}

// UserID crea un campo para el ID del usuario local.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Identifier crea un campo para el ID del usuario en el proveedor.
func Identifier(v string) zap.Field {
	return zap.String("identifier", v)
}

// Token crea un campo para un token OAuth, enmascarado.
// Solo expone los primeros 4 caracteres; el resto se reemplaza.
func Token(v string) zap.Field {
	return zap.String("token", mask(v))
}

func mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:4] + "****"
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}
