package main

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/shishobooks/bookhub/pkg/database"
)

// Recomputes category book counts from book_categories. Counters are updated
// one category at a time, so a crash mid-update can leave some of them off by
// one until this runs.
func main() {
	ctx := context.Background()
	log := logger.New()

	var opts struct {
		DryRun bool `short:"n" long:"dry-run" description:"Only print the categories that have drifted"`
	}

	if _, err := flags.Parse(&opts); err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	svc := categories.NewService(db)

	find := svc.ReconcileCounts
	if opts.DryRun {
		find = svc.FindCountDrift
	}
	drifts, err := find(ctx)
	if err != nil {
		log.Err(err).Fatal("reconcile error")
	}

	if len(drifts) == 0 {
		fmt.Println("All category counts are correct")
		return
	}
	for _, d := range drifts {
		fmt.Printf("%d\t%s\tstored=%d\tactual=%d\n", d.CategoryID, d.Name, d.Stored, d.Actual)
	}
	if opts.DryRun {
		fmt.Printf("%d categories have drifted (dry run, nothing written)\n", len(drifts))
		return
	}
	fmt.Printf("Fixed %d categories\n", len(drifts))
}
