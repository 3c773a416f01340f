package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/pkg/logger"
)

// HeaderIdempotencyKey cabecera opcional de las mutaciones del libro.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore lo implementa el adaptador Redis.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency rechaza con 409 DUPLICATE_REQUEST una clave ya usada dentro del TTL.
// Si la operación falla, la clave se libera para permitir el reintento.
// Sin cabecera la petición pasa sin control.
func Idempotency(store IdempotencyStore, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		key = c.Route().Path + ":" + key

		ok, err := store.Acquire(c.Context(), key)
		if err != nil {
			log.Error().Err(err).Msg("idempotencia no disponible")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE", Message: "idempotencia no disponible"})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_REQUEST", Message: "Idempotency-Key ya utilizada"})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if relErr := store.Release(ctx, key); relErr != nil {
				log.Warn().Err(relErr).Str("key", key).Msg("liberar clave de idempotencia")
			}
		}
		return err
	}
}
