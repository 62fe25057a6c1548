package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - SAGA / RING
// =================================================================================

// Saga nombre de la definición de saga (ej: "register").
func Saga(v string) zap.Field { return zap.String("saga", v) }

// ExecutionID identifica una ejecución puntual de una saga.
func ExecutionID(v string) zap.Field { return zap.String("execution_id", v) }

// StepIndex posición del paso dentro de la saga (0-based).
func StepIndex(v int) zap.Field { return zap.Int("step_index", v) }

// Step nombre del paso.
func Step(v string) zap.Field { return zap.String("step", v) }

// Phase "action", "compensation" o "saga".
func Phase(v string) zap.Field { return zap.String("phase", v) }

// Outcome resultado del evento (succeeded, failed, committed...).
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// Node nombre del nodo de cache físico.
func Node(v string) zap.Field { return zap.String("node", v) }

// Username usuario sobre el que opera el flujo.
func Username(v string) zap.Field { return zap.String("username", v) }

// UserID ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }
func Key(v string) zap.Field       { return zap.String("key", v) }

// Genéricos (re-export de zap para no importar zap en cada handler)
func String(k, v string) zap.Field    { return zap.String(k, v) }
func Int(k string, v int) zap.Field   { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
