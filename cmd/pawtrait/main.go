package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pawtrait/pawtrait-client/internal/api"
	"github.com/pawtrait/pawtrait-client/internal/checkout"
	"github.com/pawtrait/pawtrait-client/internal/config"
	"github.com/pawtrait/pawtrait-client/internal/entitlement"
	"github.com/pawtrait/pawtrait-client/internal/export"
	"github.com/pawtrait/pawtrait-client/internal/models"
	"github.com/pawtrait/pawtrait-client/internal/session"
	"github.com/pawtrait/pawtrait-client/internal/workflow"
	"github.com/pawtrait/pawtrait-client/pkg/logger"
)

const usage = `Usage: pawtrait <command> [flags]

Commands:
  register  create an account (-email, -password)
  login     sign in (-email, -password)
  logout    sign out and forget the stored credential
  whoami    show the current identity, tier and credit balance
  styles    list the style catalog with availability for your tier
  generate  turn a pet photo into artwork (-image, -style | -scene, -copy)
  history   list past generations (-limit, -save <id>)
  buy       purchase a credit pack (-tier starter|pro|ultimate)
`

// app bundles everything a subcommand needs.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	client   *api.Client
	store    *session.Store
	exporter *export.Exporter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	creds := session.NewCredentials(cfg.CredentialsPath)
	if err := creds.Load(); err != nil {
		log.Fatalf("credentials: %v", err)
	}

	client := api.NewClient(cfg, creds, logr)
	store := session.NewStore(client, creds, logr)

	var share export.ShareBackend
	if cfg.ShareEnabled() {
		uploader, err := export.NewShareUploader(export.ShareConfig{
			Endpoint:      cfg.ShareS3Endpoint,
			Region:        cfg.ShareS3Region,
			AccessKey:     cfg.ShareS3AccessKey,
			SecretKey:     cfg.ShareS3SecretKey,
			Bucket:        cfg.ShareS3Bucket,
			PublicBaseURL: cfg.ShareS3PublicURL,
			UsePathStyle:  cfg.ShareS3PathStyle,
			Prefix:        cfg.ShareS3Prefix,
		})
		if err != nil {
			log.Fatalf("share uploader: %v", err)
		}
		share = uploader
	}

	a := &app{
		cfg:      cfg,
		log:      logr,
		client:   client,
		store:    store,
		exporter: export.NewExporter(share, cfg.OutputDir, logr),
	}

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cmdErr error
	switch os.Args[1] {
	case "register":
		cmdErr = a.runAuth(ctx, "register", os.Args[2:])
	case "login":
		cmdErr = a.runAuth(ctx, "login", os.Args[2:])
	case "logout":
		a.store.Logout()
		fmt.Println("Signed out.")
	case "whoami":
		cmdErr = a.runWhoami(ctx)
	case "styles":
		cmdErr = a.runStyles(ctx)
	case "generate":
		cmdErr = a.runGenerate(ctx, os.Args[2:])
	case "history":
		cmdErr = a.runHistory(ctx, os.Args[2:])
	case "buy":
		cmdErr = a.runBuy(ctx, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command %q.\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, cmdErr)
		os.Exit(1)
	}
}

func (a *app) runAuth(ctx context.Context, name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("%s requires -email and -password", name)
	}

	var (
		identity *models.Identity
		err      error
	)
	if name == "register" {
		identity, err = a.store.Register(ctx, *email, *password)
	} else {
		identity, err = a.store.Login(ctx, *email, *password)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Welcome, %s! Tier: %s, credits remaining: %d\n",
		identity.Email, entitlement.ComputeTier(*identity), identity.CreditsRemaining)
	return nil
}

func (a *app) runWhoami(ctx context.Context) error {
	identity, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	tier := entitlement.ComputeTier(*identity)
	credits := fmt.Sprintf("%d", identity.CreditsRemaining)
	if identity.IsAdmin {
		credits = "unlimited"
	}
	fmt.Printf("Email:   %s\nTier:    %s\nCredits: %s\nTotal purchased: %d\n",
		identity.Email, tier, credits, identity.TotalCreditsPurchased)
	return nil
}

func (a *app) runStyles(ctx context.Context) error {
	a.store.Initialize(ctx)

	identity, authenticated := a.store.Identity()
	if authenticated {
		// Cross-check with the server's view when we can.
		if resp, err := a.client.AvailableStyles(ctx); err == nil {
			fmt.Printf("Your tier: %s\n", resp.UserTier)
		} else {
			a.log.Warn("fetch available styles", "err", err)
		}
	}

	for _, name := range entitlement.Styles() {
		marker := " "
		if authenticated && !entitlement.IsStyleAllowed(identity, name) {
			marker = "🔒"
		} else if !authenticated && !entitlement.IsBasic(name) {
			marker = "🔒"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	imagePath := fs.String("image", "", "path to the pet photo (png or jpeg, max 10MB)")
	style := fs.String("style", "", "catalog style name")
	scene := fs.String("scene", "", "custom scene prompt (Pro and above)")
	copyToClipboard := fs.Bool("copy", false, "also copy the result to the clipboard")
	fs.Parse(args)

	if *imagePath == "" {
		return fmt.Errorf("generate requires -image")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	wf := workflow.New(a.client, a.store, a.log)
	if err := wf.SetImage(fileBase(*imagePath), data); err != nil {
		return err
	}
	if *scene != "" {
		wf.UseCustomScene(*scene)
	} else {
		wf.UseStyle(*style)
	}

	fmt.Println("Generating artwork, this can take a minute...")
	result, err := wf.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Done. Style: %s, credits used: %d\n", result.Style, result.CreditsUsed)

	save := a.exporter.SaveToDevice(ctx, result.ImageData, artworkFilename(result.Style))
	reportSave(save)

	if *copyToClipboard {
		if clip := a.exporter.CopyToClipboard(result.ImageData); clip.Success {
			fmt.Println("Copied to clipboard.")
		} else {
			fmt.Println(clip.Message)
		}
	}
	return nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of records to fetch")
	saveID := fs.String("save", "", "re-export the record with this id")
	fs.Parse(args)

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	records, err := a.client.ListGenerations(ctx, *limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No generations yet.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %s  %s  credits used: %d\n",
			rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Style, rec.CreditsUsed)
	}

	if *saveID == "" {
		return nil
	}
	for _, rec := range records {
		if rec.ID != *saveID {
			continue
		}
		data, err := export.DecodeImage(rec.ResultBase64)
		if err != nil {
			return err
		}
		reportSave(a.exporter.SaveToDevice(ctx, data, artworkFilename(rec.Style)))
		return nil
	}
	return fmt.Errorf("no record %q in the fetched history", *saveID)
}

func (a *app) runBuy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	tier := fs.String("tier", "", "credit pack tier: starter, pro or ultimate")
	fs.Parse(args)

	if *tier == "" {
		return fmt.Errorf("buy requires -tier")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	flow := checkout.NewFlow(a.client, a.cfg.CheckoutListen, a.log)
	outcome, err := flow.Start(ctx, *tier)
	if err != nil {
		return err
	}
	if outcome.Cancelled {
		fmt.Println("Checkout cancelled. No charge was made.")
		return nil
	}

	if err := a.store.Refresh(ctx); err != nil {
		a.log.Warn("refresh after payment failed", "err", err)
	}
	if identity, ok := a.store.Identity(); ok {
		fmt.Printf("Payment complete. Credits remaining: %d, tier: %s\n",
			identity.CreditsRemaining, entitlement.ComputeTier(identity))
	} else {
		fmt.Println("Payment complete.")
	}
	return nil
}

// requireSession validates the persisted credential and fails the command
// with a sign-in hint when there is none.
func (a *app) requireSession(ctx context.Context) (*models.Identity, error) {
	a.store.Initialize(ctx)
	identity, ok := a.store.Identity()
	if !ok {
		return nil, fmt.Errorf("not signed in; run `pawtrait login` first")
	}
	return &identity, nil
}

func reportSave(save export.SaveResult) {
	switch {
	case save.Success && save.Method == export.MethodShare:
		fmt.Printf("Shared: %s\n", save.Location)
	case save.Success:
		fmt.Printf("Saved to %s\n", save.Location)
	case save.Cancelled:
		// User backed out; stay quiet.
	default:
		fmt.Println(save.Message)
	}
}

// artworkFilename builds a filesystem-safe name like the web client's
// pawtrait-<style>-<timestamp>.png downloads.
func artworkFilename(style string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, style)
	slug = strings.Trim(strings.Join(strings.FieldsFunc(slug, func(r rune) bool { return r == '-' }), "-"), "-")
	if slug == "" {
		slug = "artwork"
	}
	return fmt.Sprintf("pawtrait-%s-%d.png", slug, time.Now().Unix())
}

func fileBase(path string) string {
	return filepath.Base(path)
}
