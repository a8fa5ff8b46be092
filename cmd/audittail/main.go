package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-ledger/constants"
	"github.com/joseph-ayodele/receipt-ledger/internal/audit"
	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
	repo "github.com/joseph-ayodele/receipt-ledger/internal/repository"
)

func main() {
	var (
		draftFlag = flag.String("draft", "", "show events for one draft ID")
		typeFlag  = flag.String("type", "", "show events of one type (e.g. SEND_SUCCEEDED)")
		limit     = flag.Int("limit", 0, "maximum number of events to show")
		stats     = flag.Bool("stats", false, "print event counts per type instead of events")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := common.LoadConfig()
	auditDB, err := repo.Open(ctx, cfg.Stores.AuditDBPath, logger)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(auditDB, logger)

	auditRepo, err := repo.NewAuditRepository(auditDB, repo.DefaultRetryPolicy, logger)
	if err != nil {
		logger.Error("failed to initialize audit repository", "error", err)
		os.Exit(1)
	}
	queries := audit.NewQueryService(auditRepo)

	if *stats {
		s, err := queries.Statistics(ctx)
		if err != nil {
			logger.Error("failed to compute statistics", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Total events: %d\n", s.Total)
		for _, et := range constants.EventTypes {
			fmt.Printf("- %s: %d\n", et, s.ByType[et])
		}
		return
	}

	var events []*entity.AuditEvent
	switch {
	case *draftFlag != "":
		draftID, perr := uuid.Parse(*draftFlag)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid draft ID %q: %v\n", *draftFlag, perr)
			os.Exit(1)
		}
		events, err = queries.EventsForDraft(ctx, draftID, *limit)
	case *typeFlag != "":
		events, err = queries.EventsByType(ctx, constants.EventType(*typeFlag), *limit)
	default:
		events, err = queries.Recent(ctx, *limit)
	}
	if err != nil {
		logger.Error("failed to query audit trail", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			logger.Error("failed to encode event", "error", err)
			os.Exit(1)
		}
	}
}
