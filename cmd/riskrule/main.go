package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codewithboateng/riskrule/internal/analyzer"
	"github.com/codewithboateng/riskrule/internal/api"
	"github.com/codewithboateng/riskrule/internal/metrics"
	"github.com/codewithboateng/riskrule/internal/model"
	"github.com/codewithboateng/riskrule/internal/pipeline"
	"github.com/codewithboateng/riskrule/internal/reporting"
	"github.com/codewithboateng/riskrule/internal/shared"
	"github.com/codewithboateng/riskrule/internal/storage"
)

// Exit codes: 0 clean, 1 document rejected or runtime failure, 2 bad usage.

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "parse":
		parseCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "analyze":
		analyzeCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "version":
		fmt.Println("riskrule model version:", model.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `riskrule – fraud rule-model validator and analyzer

Usage:
  riskrule parse    --file <model.json> [--config ./configs/riskrule.yaml]
  riskrule validate --file <model.json> | --dir <models-dir> [--config ./configs/riskrule.yaml]
  riskrule analyze  --file <model.json> --out <reports-dir> [--db ./riskrule.db] [--format text|json|html] [--config ./configs/riskrule.yaml]
  riskrule serve    [--addr :8080] [--db ./riskrule.db] [--config ./configs/riskrule.yaml]
  riskrule version
`)
}

// parseCmd checks structure only and prints the canonical form.
func parseCmd(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	file := fs.String("file", "", "Path to a rule-model JSON document")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "parse: --file is required")
		os.Exit(2)
	}

	res := runFile(*file, cfg.Analysis, false)
	if len(res.ParserErrors) > 0 {
		reporting.WriteErrors(os.Stderr, res)
		os.Exit(1)
	}
	out, err := res.Model.Serialize()
	if err != nil {
		slog.Error("serialize error", "err", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	file := fs.String("file", "", "Path to a rule-model JSON document")
	dir := fs.String("dir", "", "Validate every .json document under a directory")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch {
	case *file != "" && *dir != "":
		fmt.Fprintln(os.Stderr, "validate: --file and --dir are mutually exclusive")
		os.Exit(2)
	case *file != "":
		res := runFile(*file, cfg.Analysis, false)
		if !res.Valid() {
			reporting.WriteErrors(os.Stdout, res)
			os.Exit(1)
		}
		reporting.WriteSummary(os.Stdout, res)
		fmt.Println("Validation OK")
	case *dir != "":
		if !validateDir(*dir, cfg.Analysis) {
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "validate: --file or --dir is required")
		os.Exit(2)
	}
}

// validateDir runs every document concurrently; each pipeline pass is a
// pure function of its bytes so no coordination is needed.
func validateDir(dir string, cfg analyzer.Config) bool {
	var files []string
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			files = append(files, p)
		}
		return nil
	})
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "validate: no .json documents found under", dir)
		return false
	}

	type outcome struct {
		path string
		res  *pipeline.Result
	}
	results := make([]outcome, len(files))
	var wg sync.WaitGroup
	for i, p := range files {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			results[i] = outcome{path: p, res: runFile(p, cfg, false)}
		}(i, p)
	}
	wg.Wait()

	allValid := true
	for _, o := range results {
		if o.res.Valid() {
			fmt.Printf("%s: OK\n", o.path)
			continue
		}
		allValid = false
		fmt.Printf("%s: FAILED\n", o.path)
		reporting.WriteErrors(os.Stdout, o.res)
	}
	return allValid
}

func analyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	file := fs.String("file", "", "Path to a rule-model JSON document")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	format := fs.String("format", "", "Report format: text, json, or html")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	// precedence: flags > config > defaults
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *format == "" {
		*format = cfg.Reporting.Format
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "analyze: --file is required")
		os.Exit(2)
	}

	res := runFile(*file, cfg.Analysis, true)
	if !res.Valid() {
		reporting.WriteErrors(os.Stdout, res)
		os.Exit(1)
	}

	runID := uuid.NewString()
	run := &storage.Run{
		ID:        runID,
		CreatedAt: time.Now().UTC(),
		ModelID:   res.Model.ModelID,
		ModelName: res.Model.Name,
		Source:    filepath.Clean(*file),
		Valid:     true,
		Report:    res.Report,
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	if err := db.SaveRun(run); err != nil {
		slog.Error("db save run error", "err", err)
		os.Exit(1)
	}

	switch *format {
	case "json":
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			slog.Error("cannot create out dir", "err", err)
			os.Exit(1)
		}
		path, err := reporting.WriteJSON(runID, *outDir, res.Report)
		if err != nil {
			slog.Error("write report error", "err", err)
			os.Exit(1)
		}
		fmt.Printf("Analyze OK\n  Run: %s\n  JSON: %s\n  DB: %s\n", runID, path, filepath.Clean(*dbPath))
	case "html":
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			slog.Error("cannot create out dir", "err", err)
			os.Exit(1)
		}
		path, err := reporting.WriteHTML(runID, *outDir, res.Report)
		if err != nil {
			slog.Error("write report error", "err", err)
			os.Exit(1)
		}
		fmt.Printf("Analyze OK\n  Run: %s\n  HTML: %s\n  DB: %s\n", runID, path, filepath.Clean(*dbPath))
	default:
		reporting.WriteReport(os.Stdout, res.Report)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Logger:          logger,
		Metrics:         metrics.New(),
		Analysis:        cfg.Analysis,
		SessionDuration: 12 * time.Hour,
	}

	logger.Info("listening", "addr", *addr, "db", filepath.Clean(*dbPath))
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func runFile(path string, cfg analyzer.Config, analyze bool) *pipeline.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot read", path+":", err)
		os.Exit(1)
	}
	if analyze {
		return pipeline.Run(data, cfg)
	}
	return pipeline.Validate(data)
}
