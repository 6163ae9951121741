package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/lox/marsweather/internal/export"
	"github.com/lox/marsweather/internal/ingest"
	"github.com/lox/marsweather/internal/models"
	"github.com/lox/marsweather/internal/render"
	"github.com/lox/marsweather/internal/store"
	"github.com/lox/marsweather/internal/transform"
	"github.com/lox/marsweather/internal/watch"
)

// loadViews loads the input and derives every view. A load error is fatal
// and returns no views. A derivation error comes back alongside the views
// that did succeed, so callers write what they can and still fail.
func loadViews(input string) (*models.Table, *transform.Views, error) {
	table, err := ingest.Load(input)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	log.Printf("loaded %d sols from %s", table.Len(), input)

	views, err := transform.Derive(table)
	return table, views, err
}

type RenderCmd struct {
	OutDir    string `help:"Directory for the chart documents." default:"." env:"MARSWEATHER_OUT_DIR" type:"path"`
	PlotlyURL string `help:"URL of plotly.js referenced by each page." default:"${plotly_url}" env:"MARSWEATHER_PLOTLY_URL"`
	PlotlyJS  string `help:"Inline this local plotly.js bundle instead of referencing a URL." env:"MARSWEATHER_PLOTLY_JS" type:"path"`
	Preview   bool   `help:"Also write a preview.png summary card." env:"MARSWEATHER_PREVIEW"`
}

func (c *RenderCmd) Run(g *Globals) error {
	_, views, derr := loadViews(g.Input)
	if views == nil {
		return derr
	}
	return errors.Join(c.render(views), derr)
}

func (c *RenderCmd) render(views *transform.Views) error {
	r := render.NewRenderer(c.OutDir)
	if c.PlotlyURL != "" {
		r.SetScriptURL(c.PlotlyURL)
	}
	if c.PlotlyJS != "" {
		if err := r.InlinePlotly(c.PlotlyJS); err != nil {
			return err
		}
	}

	paths, err := r.WriteAll(views)
	if err != nil {
		return err
	}

	if c.Preview {
		path := filepath.Join(c.OutDir, "preview.png")
		if err := render.WritePreview(views, path); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		log.Printf("render: wrote %s", path)
	}

	log.Printf("render: %d charts written to %s", len(paths), c.OutDir)
	return nil
}

type ExportCmd struct {
	Workbook string `help:"Spreadsheet output path." default:"mars-weather.xlsx" env:"MARSWEATHER_WORKBOOK" type:"path"`
	DB       string `help:"Also write the table and views to this SQLite database." env:"MARSWEATHER_DB" type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	table, views, derr := loadViews(g.Input)
	if views == nil {
		return derr
	}

	if err := export.WriteWorkbook(views, c.Workbook); err != nil {
		return err
	}
	log.Printf("export: wrote %s", c.Workbook)

	if c.DB == "" {
		return derr
	}
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := st.ReplaceRecords(table.Records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	if err := st.SaveViews(views); err != nil {
		return fmt.Errorf("store views: %w", err)
	}
	log.Printf("export: wrote %d sols to %s", table.Len(), c.DB)
	return derr
}

type FetchCmd struct {
	URL string `arg:"" help:"Dataset location (http, https or ftp)." env:"MARSWEATHER_DATASET_URL"`
}

func (c *FetchCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := ingest.NewFetcher().Fetch(ctx, c.URL, g.Input)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	log.Printf("fetch: wrote %d bytes to %s", n, g.Input)
	return nil
}

type WatchCmd struct {
	RenderCmd
}

func (c *WatchCmd) Run(g *Globals) error {
	if err := c.RenderCmd.Run(g); err != nil {
		log.Printf("watch: %v", err)
	}

	fw, err := watch.New(g.Input)
	if err != nil {
		return err
	}
	defer fw.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("watch: waiting for changes to %s", g.Input)
	return fw.Run(ctx, func() error {
		return c.RenderCmd.Run(g)
	})
}
