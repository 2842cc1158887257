package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/cache"
	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/hcaptcha"
	"github.com/soutienweb/cagnotte/internal/pkg/mail"
	"github.com/soutienweb/cagnotte/internal/pkg/session"
	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

// loginLinkRateLimit caps how many login links one email can request per hour.
const loginLinkRateLimit = 3

// HandleLoginPage renders the login-link request form.
func HandleLoginPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.AccountRoute, fiber.StatusSeeOther)
	}
	return c.Render("auth/login", fiber.Map{
		"Title":           "Connexion",
		"CSRFToken":       c.Locals("csrf"),
		"HCaptchaSitekey": env.GetEnv("HCAPTCHA_SITEKEY", ""),
		"Flash":           flash.Get(c),
	}, "layouts/main")
}

// HandleLoginLinkRequest mails a single-use login link. The response is the
// same whether or not the email matches an account.
func HandleLoginLinkRequest(c *fiber.Ctx) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	if email == "" {
		return flashError(c, "Veuillez renseigner votre adresse email.", constants.LoginRoute)
	}

	if ok, err := hcaptcha.Verify(c.FormValue("h-captcha-response")); err != nil || !ok {
		return flashError(c, "La vérification anti-robot a échoué.", constants.LoginRoute)
	}

	count, err := cache.Incr("login_link:"+email, time.Hour)
	if err == nil && count > loginLinkRateLimit {
		return flashError(c, "Trop de demandes pour cette adresse. Réessayez dans une heure.", constants.LoginRoute)
	}

	neutral := "Si un compte existe pour cette adresse, un lien de connexion vient d'être envoyé."

	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByEmail(email)
	if err != nil {
		// Same response as the success path.
		return flashSuccess(c, neutral, constants.LoginRoute)
	}

	token, err := models.NewLoginToken(account.ID, time.Now())
	if err != nil {
		log.Errorf("[Auth] generation du jeton pour %s en echec: %v", email, err)
		return flashError(c, "Une erreur est survenue. Réessayez plus tard.", constants.LoginRoute)
	}
	if err := repository.GetGlobalFactory().GetTokenRepository().Create(token); err != nil {
		log.Errorf("[Auth] enregistrement du jeton pour %s en echec: %v", email, err)
		return flashError(c, "Une erreur est survenue. Réessayez plus tard.", constants.LoginRoute)
	}

	link := fmt.Sprintf("%s/login/%s", strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"), token.Token)
	body := fmt.Sprintf(
		"<p>Voici votre lien de connexion : <a href=\"%s\">%s</a></p><p>Il est valable une heure et ne peut servir qu'une fois.</p>",
		link, link,
	)
	if err := mail.SendMail(account.Email, "Votre lien de connexion", body); err != nil {
		log.Errorf("[Auth] envoi du lien a %s en echec: %v", email, err)
		return flashError(c, "L'envoi de l'email a échoué. Réessayez plus tard.", constants.LoginRoute)
	}

	return flashSuccess(c, neutral, constants.LoginRoute)
}

// HandleLoginToken consumes a mailed login link. The token is invalidated
// on first use, valid or not the visitor ends up with a clear outcome.
func HandleLoginToken(c *fiber.Ctx) error {
	tokenValue := c.Params("token")
	tokenRepo := repository.GetGlobalFactory().GetTokenRepository()

	token, err := tokenRepo.Get(tokenValue)
	if err != nil {
		return flashError(c, "Ce lien de connexion est inconnu ou a déjà servi.", constants.LoginRoute)
	}
	now := time.Now()
	if !token.Valid(now) {
		return flashError(c, "Ce lien de connexion a expiré. Demandez-en un nouveau.", constants.LoginRoute)
	}
	if err := tokenRepo.Invalidate(token.Token, now); err != nil {
		log.Errorf("[Auth] invalidation du jeton en echec: %v", err)
		return flashError(c, "Une erreur est survenue. Réessayez plus tard.", constants.LoginRoute)
	}

	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByID(token.AccountID)
	if err != nil {
		return flashError(c, "Le compte associé à ce lien n'existe plus.", constants.LoginRoute)
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return flashError(c, "La session n'a pas pu être ouverte.", constants.LoginRoute)
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyAccountID, account.ID)
	sess.Set(usercontext.KeyEmail, account.Email)
	sess.Set(usercontext.KeyIsAdmin, false)
	if err := sess.Save(); err != nil {
		return flashError(c, "La session n'a pas pu être enregistrée.", constants.LoginRoute)
	}

	return flashSuccess(c, "Vous êtes connecté.", constants.AccountRoute)
}

// HandleSignupPage renders the self-service signup form.
func HandleSignupPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.AccountRoute, fiber.StatusSeeOther)
	}
	return c.Render("auth/signup", fiber.Map{
		"Title":           "Créer un compte",
		"CSRFToken":       c.Locals("csrf"),
		"HCaptchaSitekey": env.GetEnv("HCAPTCHA_SITEKEY", ""),
		"Flash":           flash.Get(c),
	}, "layouts/main")
}

// HandleSignup creates an account and mails the first login link. The new
// account starts expired; the first renewal activates it.
func HandleSignup(c *fiber.Ctx) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))

	if ok, err := hcaptcha.Verify(c.FormValue("h-captcha-response")); err != nil || !ok {
		return flashError(c, "La vérification anti-robot a échoué.", "/signup")
	}

	account := &models.Account{
		Email:     email,
		ExpiredAt: time.Now(),
		Cadence:   models.CadenceYear,
	}
	if err := account.Validate(); err != nil {
		return flashError(c, "Cette adresse email n'est pas valide.", "/signup")
	}

	accountRepo := repository.GetGlobalFactory().GetAccountRepository()
	if _, err := accountRepo.GetByEmail(email); err == nil {
		// Do not reveal that the address is taken; send a login link instead.
		return HandleLoginLinkRequest(c)
	}
	if err := accountRepo.Create(account); err != nil {
		log.Errorf("[Auth] creation du compte %s en echec: %v", email, err)
		return flashError(c, "La création du compte a échoué. Réessayez plus tard.", "/signup")
	}

	return HandleLoginLinkRequest(c)
}

// HandleLogout destroys the visitor session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return flashError(c, "Vous êtes déjà déconnecté.", constants.LoginRoute)
	}
	if err := sess.Destroy(); err != nil {
		return flashError(c, fmt.Sprintf("Une erreur est survenue : %s", err), constants.LoginRoute)
	}

	c.Locals(usercontext.KeyFromProtected, false)
	return flashSuccess(c, "Vous êtes déconnecté. À bientôt !", constants.LoginRoute)
}
