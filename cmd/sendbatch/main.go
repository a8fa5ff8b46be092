package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/audit"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/directory"
	"github.com/joseph-ayodele/receipt-ledger/internal/gate"
	"github.com/joseph-ayodele/receipt-ledger/internal/ledger"
	repo "github.com/joseph-ayodele/receipt-ledger/internal/repository"
	"github.com/joseph-ayodele/receipt-ledger/internal/send"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		idsFlag = flag.String("ids", "", "comma-separated draft IDs to send")
		allFlag = flag.Bool("all-drafts", false, "send every draft still in DRAFT status")
		actor   = flag.String("actor", "", "actor recorded in the audit trail")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall batch timeout")
	)
	flag.Parse()

	if *idsFlag == "" && !*allFlag {
		printError("Error: either --ids or --all-drafts is required\n")
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if *actor != "" {
		ctx = common.WithActor(ctx, *actor)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Open the file-backed stores
	draftDB, err := repo.Open(ctx, cfg.Stores.DraftDBPath, logger)
	if err != nil {
		logger.Error("failed to open draft store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(draftDB, logger)

	auditDB, err := repo.Open(ctx, cfg.Stores.AuditDBPath, logger)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(auditDB, logger)

	draftRepo, err := repo.NewDraftRepository(draftDB, logger)
	if err != nil {
		logger.Error("failed to initialize draft repository", "error", err)
		os.Exit(1)
	}
	auditRepo, err := repo.NewAuditRepository(auditDB, repo.RetryPolicy{
		MaxRetries: cfg.Audit.MaxRetries,
		Delay:      cfg.Audit.RetryDelay,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize audit repository", "error", err)
		os.Exit(1)
	}

	// Load the location/staff directory
	dir, err := directory.Load(cfg.Stores.DirectoryPath, logger)
	if err != nil {
		logger.Error("failed to load directory", "path", cfg.Stores.DirectoryPath, "error", err)
		os.Exit(1)
	}

	// Wire the pipeline
	trail := audit.NewTrail(auditRepo, logger)
	g := gate.New(dir)
	templates := ledger.NewTemplates(cfg.Ledger, logger)
	branchWriter := ledger.NewWriter(ledger.BranchLayout(), templates, dir, logger)
	staffWriter := ledger.NewWriter(ledger.StaffLayout(), templates, dir, logger)
	orchestrator := send.NewOrchestrator(draftRepo, g, branchWriter, staffWriter, trail, logger)

	// Resolve the batch
	var ids []uuid.UUID
	if *allFlag {
		status := constants.StatusDraft
		pending, err := draftRepo.List(ctx, &status)
		if err != nil {
			logger.Error("failed to list drafts", "error", err)
			os.Exit(1)
		}
		for _, d := range pending {
			ids = append(ids, d.ID)
		}
		if len(ids) == 0 {
			fmt.Println("No drafts pending send.")
			return
		}
	} else {
		for _, raw := range strings.Split(*idsFlag, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				printError("Error: invalid draft ID %q: %v\n", raw, err)
				os.Exit(1)
			}
			ids = append(ids, id)
		}
	}

	summary, err := orchestrator.SendDrafts(ctx, ids)
	if err != nil {
		logger.Error("send batch failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Send batch complete!\n")
	fmt.Printf("- Total: %d\n", summary.Total)
	fmt.Printf("- Sent: %d\n", summary.Sent)
	fmt.Printf("- Failed: %d\n", summary.Failed)
	for _, item := range summary.Results {
		if item.Status == send.ItemSent {
			continue
		}
		fmt.Printf("- %s: %s (%s)\n", item.DraftID, item.Status, strings.Join(item.Errors, "; "))
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
