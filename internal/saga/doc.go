// Package saga ejecuta una lista ordenada de pasos sobre recursos distintos y
// deshace el prefijo completado cuando uno falla.
//
// Builder junta los pasos y Build los congela en una Definition. Cada llamada a
// Definition.Execute corre las acciones en orden en la goroutine del caller. Con
// la primera acción fallida no corre ninguna otra: se compensan en orden inverso
// los pasos que ya terminaron, cada compensación se intenta exactamente una vez
// aunque una anterior haya fallado. El caller recibe un *Error con la falla
// original y todas las compensaciones fallidas.
//
//	def, err := saga.NewBuilder("register", saga.WithLimiter(lim)).
//		AddStep("validate", validate, nil).
//		AddStep("create-user", createUser, deleteUser).
//		AddStep("cache-token", cacheToken, evictToken).
//		Build()
//	exec, err := def.Execute(ctx)
//
// No hay reintentos ni timeouts propios: los deadlines son cosa de cada paso.
package saga
