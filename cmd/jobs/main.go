package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/jobqueue"
	"github.com/soutienweb/cagnotte/internal/pkg/mail"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
)

// One-shot job runner for external cron: each invocation runs a single
// sweep and exits, so the scheduler owns the cadence.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())

	switch os.Args[1] {
	case "complete":
		svc := payments.NewDefaultService(database.GetDB())
		n, err := svc.CompleteAllPaid(context.Background())
		if err != nil {
			log.Fatalf("Reconciliation des paiements en echec: %v", err)
		}
		log.Printf("%d paiement(s) finalise(s)", n)

	case "remind":
		n, err := jobqueue.RunReminderSweep(database.GetDB(), mail.SendMail, time.Now())
		if err != nil {
			log.Fatalf("Envoi des rappels en echec: %v", err)
		}
		log.Printf("%d rappel(s) envoye(s)", n)

	case "clear":
		n, err := jobqueue.RunInactiveSweep(database.GetDB(), time.Now(), jobqueue.InactiveAfter())
		if err != nil {
			log.Fatalf("Purge des comptes inactifs en echec: %v", err)
		}
		log.Printf("%d compte(s) purge(s)", n)

	case "admin":
		if len(os.Args) < 5 {
			fmt.Println("Usage: go run cmd/jobs/main.go admin <email> <nom> <mot de passe>")
			os.Exit(1)
		}
		if err := upsertAdmin(os.Args[2], os.Args[3], os.Args[4]); err != nil {
			log.Fatalf("Creation de l'operateur en echec: %v", err)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

// upsertAdmin creates a back-office operator, or resets the password of an
// existing one. There is no self-service signup for operators.
func upsertAdmin(email, name, password string) error {
	repo := repository.GetGlobalFactory().GetAdminUserRepository()

	admin, err := repo.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = &models.AdminUser{Name: name, Email: email}
		if err := admin.SetPassword(password); err != nil {
			return err
		}
		if err := admin.Validate(); err != nil {
			return err
		}
		if err := repo.Create(admin); err != nil {
			return err
		}
		log.Printf("Operateur %s cree", email)
		return nil
	}
	if err != nil {
		return err
	}

	admin.Name = name
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := admin.Validate(); err != nil {
		return err
	}
	if err := repo.Update(admin); err != nil {
		return err
	}
	log.Printf("Mot de passe de %s reinitialise", email)
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run cmd/jobs/main.go [commande]")
	fmt.Println("Commandes disponibles:")
	fmt.Println("  complete - Finalise les paiements payes (numero de facture, PDF, email)")
	fmt.Println("  remind   - Envoie les rappels d'expiration")
	fmt.Println("  clear    - Purge les comptes inactifs")
	fmt.Println("  admin    - Cree ou reinitialise un operateur du back-office")
}
