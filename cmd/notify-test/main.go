// Command notify-test sends one next-stage notification to the Lark recipient
// configured for a role, to check credentials and recipient IDs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/config"
	"github.com/garyjia/voucher-approval/internal/container"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	role := flag.String("role", string(domainwf.RoleBudget), "role whose recipient receives the test message")
	variant := flag.String("variant", string(domainwf.VariantStandard), "variant used to pick the stage label")
	flag.Parse()

	fmt.Println("=== Lark Notification Test ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Lark.Enabled {
		fmt.Println("lark.enabled is false; the message will only be logged")
	}

	r := domainwf.Role(*role)
	if !r.IsValid() {
		log.Fatalf("Unknown role %q", *role)
	}

	catalog, err := cfg.Workflow.Catalog()
	if err != nil {
		log.Fatalf("Invalid workflow config: %v", err)
	}
	def, err := catalog.Definition(domainwf.Variant(*variant))
	if err != nil {
		log.Fatalf("Unknown variant: %v", err)
	}
	stage, ok := domainwf.ResolveStage(def, r)
	if !ok {
		log.Fatalf("Role %s has no stage in variant %s", r, def.Variant)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	notifier, err := container.ProvideNotifier(&cfg.Lark, logger)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	note := port.Notification{
		VoucherID: "TEST-" + time.Now().Format("20060102-150405"),
		Variant:   def.Variant,
		Stage:     stage.Number,
		Label:     stage.Label,
		Role:      r,
		Quorum:    stage.Quorum,
	}
	if err := notifier.Notify(ctx, note); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Notification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Notification for %s stage %d (%s) delivered\n", r, stage.Number, stage.Label)
}
