// Command migrate applies the remote store schema and can promote an account
// to the privileged role.
//
//	migrate -r postgres://... [-grant-admin user@example.com]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/flagx"
	"github.com/dmitrijs2005/storefront/internal/remote/repomanager"
)

func main() {
	cfg := config.LoadConfig()

	var grantAdmin string
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	fs.StringVar(&grantAdmin, "grant-admin", "", "email of an account to grant the admin role")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-grant-admin"}))

	ctx := context.Background()

	db, err := repomanager.Open(ctx, cfg.RemoteDSN)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("schema is up to date")

	if grantAdmin == "" {
		return
	}
	user, err := repos.Users(db).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(grantAdmin)))
	if err != nil {
		log.Fatalf("find %s: %v", grantAdmin, err)
	}
	if err := repos.Roles(db).Grant(ctx, user.ID, models.RolePrivileged); err != nil {
		log.Fatalf("grant: %v", err)
	}
	log.Printf("granted %s to %s", models.RolePrivileged, user.Email)
}
