package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/stayflow-core/internal/auth"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

// runToken mints a staff access token signed with the configured secret.
//
//	stayflow token -sub bia -role front_desk -properties pousada,chale -ttl 720
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("sub", "", "staff member identifier recorded in the audit log")
	role := fs.String("role", string(auth.RoleFrontDesk), "housekeeper, front_desk or manager")
	properties := fs.String("properties", "", "comma-separated property IDs (empty grants all)")
	ttl := fs.Int("ttl", 0, "lifetime in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var scope []string
	for _, p := range strings.Split(*properties, ",") {
		if p = strings.TrimSpace(p); p != "" {
			scope = append(scope, p)
		}
	}

	if *ttl <= 0 {
		*ttl = cfg.Security.JWT.AccessTokenTTL
	}
	token, err := auth.IssueToken(*subject, auth.Role(*role), scope, cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
