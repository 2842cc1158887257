package apiv1

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
)

// APIServer exposes the machine-to-machine surface: the batch account sync
// consumed by the external member directory.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostAccountSync answers a batch of account ids with their expiration
// timestamps and stamps last_sync_at on every account it returned. Unknown
// ids are skipped, not errors: the directory may hold stale references.
// Emails without a matching account create one, expired, so the directory
// can register members before their first payment.
func (s *APIServer) PostAccountSync(c *fiber.Ctx) error {
	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "corps de requete illisible",
		})
	}
	if len(req.IDs) == 0 && len(req.Emails) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "ids ou emails requis",
		})
	}

	accountRepo := repository.GetGlobalFactory().GetAccountRepository()
	now := time.Now()

	response := SyncResponse{
		Expirations: make(map[string]int64),
		Accounts:    make(map[string]SyncedAccount),
		SyncedAt:    now.Unix(),
	}
	touched := make([]uint, 0, len(req.IDs)+len(req.Emails))

	if len(req.IDs) > 0 {
		accounts, err := accountRepo.GetByIDs(req.IDs)
		if err != nil {
			log.Errorf("[API] sync par ids en echec: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal_error",
			})
		}
		for _, account := range accounts {
			response.Expirations[strconv.FormatUint(uint64(account.ID), 10)] = account.ExpiredAt.Unix()
			touched = append(touched, account.ID)
		}
	}

	for _, email := range req.Emails {
		account, err := accountRepo.GetByEmail(email)
		if err != nil {
			account = &models.Account{
				Email:     email,
				ExpiredAt: now,
			}
			if err := account.Validate(); err != nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error":   "validation_failed",
					"message": "email invalide: " + email,
				})
			}
			if err := accountRepo.Create(account); err != nil {
				log.Errorf("[API] creation du compte %s en echec: %v", email, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "internal_error",
				})
			}
		}
		response.Accounts[email] = SyncedAccount{
			ID:        account.ID,
			ExpiredAt: account.ExpiredAt.Unix(),
		}
		touched = append(touched, account.ID)
	}

	if len(touched) > 0 {
		if err := accountRepo.TouchLastSync(touched, now); err != nil {
			log.Errorf("[API] mise a jour de last_sync_at en echec: %v", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetAccountExpiration returns one account's expiration timestamp.
func (s *APIServer) GetAccountExpiration(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "identifiant invalide",
		})
	}

	accountRepo := repository.GetGlobalFactory().GetAccountRepository()
	account, err := accountRepo.GetByID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	}

	if err := accountRepo.TouchLastSync([]uint{account.ID}, time.Now()); err != nil {
		log.Errorf("[API] mise a jour de last_sync_at en echec: %v", err)
	}

	return c.Status(fiber.StatusOK).JSON(SyncedAccount{
		ID:        account.ID,
		ExpiredAt: account.ExpiredAt.Unix(),
	})
}
