package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/stripe"
)

// webhookHandlers dispatches one handler per event type. Unlisted events
// are acknowledged so the gateway stops redelivering them.
var webhookHandlers = map[string]func(*fiber.Ctx, *stripe.Event) error{
	"checkout.session.completed":               handleCheckoutSessionCompleted,
	"checkout.session.async_payment_succeeded": handleCheckoutSessionCompleted,
}

// HandleStripeWebhook receives gateway events on POST /stripe/hooks. An
// unverifiable or malformed payload is a 400 so the gateway retries; a
// recognized or deliberately ignored event is a 200.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !stripe.VerifyWebhookSignature(payload, signature, secret, stripe.DefaultWebhookTolerance, time.Now()) {
		log.Warnf("[Webhook] signature invalide depuis %s", c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := stripe.ParseEvent(payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	handler, ok := webhookHandlers[event.Type]
	if !ok {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return handler(c, event)
}

func handleCheckoutSessionCompleted(c *fiber.Ctx, event *stripe.Event) error {
	sessionEvent, err := event.DecodeCheckoutSession()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if sessionEvent.PaymentIntent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	payment, err := newPaymentService().HandleCheckoutCompleted(context.Background(), sessionEvent.PaymentIntent)
	if err != nil {
		log.Errorf("[Webhook] traitement de l'evenement %s en echec: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}
	if payment == nil {
		// Unknown intent: acknowledged so the gateway does not retry.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
