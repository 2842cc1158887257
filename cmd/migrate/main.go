package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

func main() {
	// Charge les variables d'environnement depuis le fichier .env
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		env.GetEnv("DB_USER", "cagnotte"),
		env.GetEnv("DB_PASSWORD", "cagnotte"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "cagnotte_db"),
	)

	log.Printf("Connexion a la base: %s@%s:%s/%s",
		env.GetEnv("DB_USER", "cagnotte"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "cagnotte_db"),
	)

	m, err := migrate.New(
		"file://migrations",
		dbURL,
	)
	if err != nil {
		log.Fatalf("Initialisation des migrations en echec: %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Fermeture des ressources de migration en echec: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Execution des migrations en echec: %v", err)
		} else if err == migrate.ErrNoChange {
			log.Println("Aucun changement: la base est deja a jour")
		} else {
			log.Println("Migrations executees avec succes")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Annulation de la derniere migration en echec: %v", err)
		} else {
			log.Println("Derniere migration annulee")
		}

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("Veuillez indiquer un numero de version")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Numero de version invalide: %v", err)
		}

		if err := m.Migrate(uint(version)); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration vers la version %d en echec: %v", version, err)
		} else if err == migrate.ErrNoChange {
			log.Printf("Aucun changement: la base est deja en version %d", version)
		} else {
			log.Printf("Migration vers la version %d reussie", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if err == migrate.ErrNilVersion {
				log.Println("Aucune migration n'a encore ete executee")
			} else {
				log.Fatalf("Lecture de la version de migration en echec: %v", err)
			}
		} else {
			dirtyStatus := ""
			if dirty {
				dirtyStatus = " (dirty)"
			}
			log.Printf("Version de migration actuelle: %d%s", version, dirtyStatus)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [commande]")
	fmt.Println("Commandes disponibles:")
	fmt.Println("  up     - Execute toutes les migrations en attente")
	fmt.Println("  down   - Annule la derniere migration")
	fmt.Println("  goto N - Migre vers la version N")
	fmt.Println("  status - Affiche la version de migration actuelle")
}
