package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/pot"
	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

// HandleHomePage renders the public landing page with the live common-pot
// balance, the argument for contributing.
func HandleHomePage(c *fiber.Ctx) error {
	available, err := pot.NewServiceFromDB(database.GetDB()).AvailableAmount(context.Background())
	if err != nil {
		log.Errorf("[Main] solde de la cagnotte illisible: %v", err)
	}

	return c.Render("index", fiber.Map{
		"Title":        "Soutenez le service",
		"Flash":        flash.Get(c),
		"IsLoggedIn":   usercontext.IsLoggedIn(c),
		"PotAvailable": formatEuros(available),
	}, "layouts/main")
}
