package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dhawalhost/permitkit/internal/rbac"
	"github.com/dhawalhost/permitkit/pkg/client"
	"github.com/dhawalhost/permitkit/pkg/config"
	"github.com/dhawalhost/permitkit/pkg/policy"
)

const (
	defaultBaseURL  = "http://localhost:8083"
	defaultAdminURL = "http://127.0.0.1:8084"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "policies":
		err = runPolicies(os.Args[2:], os.Stdout)
	case "check":
		err = runCheck(os.Args[2:], os.Stdout)
	case "grants":
		err = runGrants(os.Args[2:], os.Stdout)
	case "lint":
		err = runLint(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(1)
	}

	if errors.Is(err, errDenied) {
		os.Exit(3)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errDenied makes `check` exit non-zero on a denial so it composes in scripts.
var errDenied = errors.New("denied")

func addCommonFlags(fs *flag.FlagSet) (*string, *time.Duration) {
	baseURL := fs.String("url", envOr("POLICYSVC_URL", defaultBaseURL), "policy service base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	return baseURL, timeout
}

func runPolicies(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("policies", flag.ExitOnError)
	baseURL, timeout := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	names, err := client.New(client.Config{BaseURL: *baseURL}).Policies(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

func runCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	baseURL, timeout := addCommonFlags(fs)
	subject := fs.String("subject", "", "subject id (required)")
	resource := fs.String("resource", "", "resource type (required)")
	action := fs.String("action", "", "action (required)")
	instance := fs.String("instance", "", "resource instance as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" || *resource == "" || *action == "" {
		return fmt.Errorf("--subject, --resource and --action are required")
	}

	req := policy.DecisionRequest{SubjectID: *subject, ResourceType: *resource, Action: *action}
	if *instance != "" {
		if err := json.Unmarshal([]byte(*instance), &req.Instance); err != nil {
			return fmt.Errorf("invalid --instance: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	allowed, err := client.New(client.Config{BaseURL: *baseURL}).Decide(ctx, req)
	if err != nil {
		return err
	}
	if !allowed {
		fmt.Fprintln(out, "denied")
		return errDenied
	}
	fmt.Fprintln(out, "allowed")
	return nil
}

func runGrants(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("grants", flag.ExitOnError)
	adminURL := fs.String("admin-url", envOr("POLICYSVC_ADMIN_URL", defaultAdminURL), "policy service admin listener URL")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	subject := fs.String("subject", "", "subject id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("--subject is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	s, err := client.New(client.Config{BaseURL: *adminURL}).SubjectGrants(ctx, *subject)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Subject %s\n", s.ID)
	for _, r := range s.Roles {
		fmt.Fprintf(out, "  role %s\n", r.Name)
		for _, g := range r.Grants {
			fmt.Fprintf(out, "    %-20s %-12s %s\n", g.Resource, g.Action, g.Policy)
		}
	}
	return nil
}

// runLint validates a subjects file, and optionally a policy definitions file,
// offline: every grant must name a policy known to the resulting registry.
func runLint(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	subjectsPath := fs.String("subjects", "", "subjects YAML file (required)")
	policiesPath := fs.String("policies", "", "policy definitions YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subjectsPath == "" {
		return fmt.Errorf("--subjects is required")
	}

	registry := policy.NewRegistry()
	if *policiesPath != "" {
		defs, err := config.LoadPolicyFile(*policiesPath)
		if err != nil {
			return err
		}
		if err := registry.RegisterDefinitions(defs...); err != nil {
			return err
		}
	}

	src, err := rbac.LoadFile(*subjectsPath)
	if err != nil {
		return err
	}
	if err := registry.Validate(src.Roles()...); err != nil {
		return err
	}
	fmt.Fprintln(out, "OK")
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: policyctl <command> [flags]

Commands:
  policies   List policies registered on the service
  check      Ask the service for a decision (exit 3 when denied)
  grants     Show the roles and grants resolved for a subject (admin listener)
  lint       Validate subjects and policy files offline`)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
