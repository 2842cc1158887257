package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/session"
	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

const adminAccountsPageSize = 50

// AdminController handles the back office using the repository pattern
type AdminController struct {
	repos *repository.Repositories
}

var adminController *AdminController

// InitializeAdminController wires the admin controller with the global
// repositories. Must run after the repository factory is initialized.
func InitializeAdminController() {
	adminController = NewAdminController(repository.GetGlobalRepositories())
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{repos: repos}
}

// GetAdminController returns the initialized admin controller.
func GetAdminController() *AdminController {
	if adminController == nil {
		panic("Admin controller not initialized. Call InitializeAdminController first.")
	}
	return adminController
}

// HandleLoginPage renders the back-office login form.
func (ac *AdminController) HandleLoginPage(c *fiber.Ctx) error {
	if usercontext.IsAdmin(c) {
		return c.Redirect("/admin", fiber.StatusSeeOther)
	}
	return c.Render("admin/login", fiber.Map{
		"Title":     "Administration",
		"CSRFToken": c.Locals("csrf"),
		"Flash":     flash.Get(c),
	}, "layouts/admin")
}

// HandleLogin authenticates a back-office operator with email + password.
func (ac *AdminController) HandleLogin(c *fiber.Ctx) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))

	// Same message for unknown email and wrong password.
	failure := "Identifiants incorrects."

	admin, err := ac.repos.AdminUser.GetByEmail(email)
	if err != nil {
		return flashError(c, failure, "/admin/login")
	}
	if !admin.CheckPassword(c.FormValue("password")) {
		return flashError(c, failure, "/admin/login")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return flashError(c, "La session n'a pas pu être ouverte.", "/admin/login")
	}
	sess.Set(usercontext.AuthKey, true)
	// Operator ids never go under KeyAccountID; the numeric id spaces
	// of admin_users and accounts overlap.
	sess.Set(usercontext.KeyAdminID, admin.ID)
	sess.Set(usercontext.KeyEmail, admin.Email)
	sess.Set(usercontext.KeyIsAdmin, true)
	if err := sess.Save(); err != nil {
		return flashError(c, "La session n'a pas pu être enregistrée.", "/admin/login")
	}

	return flashSuccess(c, "Bienvenue dans l'administration.", "/admin")
}

// HandleDashboard renders the admin dashboard: member counts, payment
// volume and the pot's audit numbers.
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	totalAccounts, err := ac.repos.Account.Count()
	if err != nil {
		return ac.handleError(c, "comptage des comptes", err)
	}
	totalPayments, err := ac.repos.Payment.Count()
	if err != nil {
		return ac.handleError(c, "comptage des paiements", err)
	}
	totalUsages, err := ac.repos.PotUsage.Count()
	if err != nil {
		return ac.handleError(c, "comptage des usages cagnotte", err)
	}
	freeRenewals, err := ac.repos.FreeRenewal.Count()
	if err != nil {
		return ac.handleError(c, "comptage des renouvellements gratuits", err)
	}
	recentAccounts, err := ac.repos.Account.List(0, 5)
	if err != nil {
		return ac.handleError(c, "lecture des derniers comptes", err)
	}

	return c.Render("admin/dashboard", fiber.Map{
		"Title":          "Tableau de bord",
		"Flash":          flash.Get(c),
		"TotalAccounts":  totalAccounts,
		"TotalPayments":  totalPayments,
		"TotalPotUsages": totalUsages,
		"FreeRenewals":   freeRenewals,
		"RecentAccounts": recentAccounts,
	}, "layouts/admin")
}

// HandleAccounts renders the paginated account list, with search.
func (ac *AdminController) HandleAccounts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	query := strings.TrimSpace(c.Query("q"))

	var accounts []models.Account
	var err error
	if query != "" {
		accounts, err = ac.repos.Account.Search(query)
	} else {
		accounts, err = ac.repos.Account.List((page-1)*adminAccountsPageSize, adminAccountsPageSize)
	}
	if err != nil {
		return ac.handleError(c, "lecture des comptes", err)
	}

	return c.Render("admin/accounts", fiber.Map{
		"Title":     "Comptes",
		"CSRFToken": c.Locals("csrf"),
		"Flash":     flash.Get(c),
		"Accounts":  accounts,
		"Query":     query,
		"Page":      page,
		"NextPage":  page + 1,
		"PrevPage":  page - 1,
	}, "layouts/admin")
}

// HandleAccountEditPage renders one account with its payments and manager.
func (ac *AdminController) HandleAccountEditPage(c *fiber.Ctx) error {
	account, err := ac.accountFromParams(c)
	if err != nil {
		return flashError(c, "Compte introuvable.", "/admin/accounts")
	}

	history, err := ac.repos.Payment.ListByAccount(account.ID)
	if err != nil {
		return ac.handleError(c, "lecture de l'historique", err)
	}
	managed, err := ac.repos.Account.ListManagedBy(account.ID)
	if err != nil {
		return ac.handleError(c, "lecture des comptes geres", err)
	}

	return c.Render("admin/account_edit", fiber.Map{
		"Title":     "Compte " + account.Email,
		"CSRFToken": c.Locals("csrf"),
		"Flash":     flash.Get(c),
		"Account":   account,
		"Address":   account.Address(),
		"Payments":  history,
		"Managed":   managed,
		"IsFree":    account.IsFree(),
	}, "layouts/admin")
}

// HandleAccountCreate creates an account from the back office.
func (ac *AdminController) HandleAccountCreate(c *fiber.Ctx) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	account := &models.Account{
		Email:     email,
		ExpiredAt: time.Now(),
		Cadence:   models.CadenceYear,
	}
	if c.FormValue("free") == "on" {
		// Epoch expiration marks a permanently-free account.
		account.ExpiredAt = time.Unix(0, 0)
	}
	if err := account.Validate(); err != nil {
		return flashError(c, "L'adresse email n'est pas valide.", "/admin/accounts")
	}
	if err := ac.repos.Account.Create(account); err != nil {
		log.Errorf("[Admin] creation du compte %s en echec: %v", email, err)
		return flashError(c, "La création du compte a échoué (adresse déjà utilisée ?).", "/admin/accounts")
	}
	return flashSuccess(c, "Compte créé.", "/admin/accounts/"+strconv.FormatUint(uint64(account.ID), 10))
}

// HandleAccountUpdate saves the admin edits: address, company, cadence,
// expiration and the free flag.
func (ac *AdminController) HandleAccountUpdate(c *fiber.Ctx) error {
	account, err := ac.accountFromParams(c)
	if err != nil {
		return flashError(c, "Compte introuvable.", "/admin/accounts")
	}
	target := "/admin/accounts/" + strconv.FormatUint(uint64(account.ID), 10)

	account.SetAddress(models.Address{
		Street:     strings.TrimSpace(c.FormValue("street")),
		Complement: strings.TrimSpace(c.FormValue("complement")),
		Zip:        strings.TrimSpace(c.FormValue("zip")),
		City:       strings.TrimSpace(c.FormValue("city")),
		Country:    strings.ToUpper(strings.TrimSpace(c.FormValue("country"))),
	})
	account.CompanyName = strings.TrimSpace(c.FormValue("company_name"))
	account.VATNumber = strings.TrimSpace(c.FormValue("vat_number"))
	if cadence := c.FormValue("cadence"); cadence != "" {
		account.Cadence = cadence
	}
	if method := c.FormValue("payment_method"); method != "" {
		account.PaymentMethod = method
	}
	account.SendReminder = c.FormValue("send_reminder") == "on"

	if c.FormValue("free") == "on" {
		account.ExpiredAt = time.Unix(0, 0)
	} else if raw := c.FormValue("expired_at"); raw != "" {
		expiredAt, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return flashError(c, "La date d'expiration est illisible (AAAA-MM-JJ).", target)
		}
		account.ExpiredAt = expiredAt
	}

	if err := account.Validate(); err != nil {
		return flashError(c, "Le formulaire contient des champs invalides.", target)
	}
	if err := ac.repos.Account.Update(account); err != nil {
		log.Errorf("[Admin] mise a jour du compte %d en echec: %v", account.ID, err)
		return flashError(c, "L'enregistrement a échoué.", target)
	}
	return flashSuccess(c, "Compte enregistré.", target)
}

// HandleAccountSetManager assigns or clears the managing account. A new
// assignment replaces any previous manager.
func (ac *AdminController) HandleAccountSetManager(c *fiber.Ctx) error {
	account, err := ac.accountFromParams(c)
	if err != nil {
		return flashError(c, "Compte introuvable.", "/admin/accounts")
	}
	target := "/admin/accounts/" + strconv.FormatUint(uint64(account.ID), 10)

	managerEmail := strings.TrimSpace(strings.ToLower(c.FormValue("manager_email")))
	if managerEmail == "" {
		if err := ac.repos.Account.SetManager(account.ID, nil); err != nil {
			return flashError(c, "Le gestionnaire n'a pas pu être retiré.", target)
		}
		return flashSuccess(c, "Gestionnaire retiré.", target)
	}

	manager, err := ac.repos.Account.GetByEmail(managerEmail)
	if err != nil {
		return flashError(c, "Aucun compte ne porte cette adresse.", target)
	}
	if manager.ID == account.ID {
		return flashError(c, "Un compte ne peut pas se gérer lui-même.", target)
	}
	if err := ac.repos.Account.SetManager(account.ID, &manager.ID); err != nil {
		log.Errorf("[Admin] assignation du gestionnaire en echec: %v", err)
		return flashError(c, "L'assignation a échoué.", target)
	}
	return flashSuccess(c, "Gestionnaire assigné : "+manager.Email, target)
}

func (ac *AdminController) accountFromParams(c *fiber.Ctx) (*models.Account, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, err
	}
	return ac.repos.Account.GetByID(uint(id))
}

func (ac *AdminController) handleError(c *fiber.Ctx, what string, err error) error {
	log.Errorf("[Admin] %s en echec: %v", what, err)
	return c.Status(fiber.StatusInternalServerError).Render("admin/error", fiber.Map{
		"Title":   "Erreur",
		"Message": "Une erreur interne est survenue.",
	}, "layouts/admin")
}
