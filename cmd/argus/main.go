package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/BerylCAtieno/argus/internal/app"
	"github.com/BerylCAtieno/argus/internal/config"
	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/utils"
)

const version = "1.0.0"

// CLI defines the command-line interface.
type CLI struct {
	Process  ProcessCmd  `cmd:"" help:"Run the extraction pipeline on a local file and print the result."`
	Datasets DatasetsCmd `cmd:"" help:"List the dataset prompt profiles."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn" env:"LOG_LEVEL"`
}

type ProcessCmd struct {
	File      string `arg:"" help:"Document to process (pdf, jpeg, png, webp)." type:"existingfile"`
	Dataset   string `short:"d" help:"Dataset id." default:"default-dataset"`
	MediaType string `name:"media-type" help:"Override the media type detected from the file."`
	Compact   bool   `help:"Print compact JSON."`
}

func (c *ProcessCmd) Run(cli *CLI) error {
	a, err := build(cli)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	if int64(len(data)) > a.Config.MaxFileSize {
		return fmt.Errorf("%s is %d bytes, larger than the %d byte limit", c.File, len(data), a.Config.MaxFileSize)
	}

	mediaType := models.MediaType(c.MediaType)
	if mediaType == "" {
		mediaType = models.MediaTypeFromFilename(c.File)
	}
	if mediaType == "" {
		mediaType = models.MediaType(http.DetectContentType(data))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := a.Service.ProcessDocument(ctx, &models.ExtractionRequest{
		File:      data,
		MediaType: mediaType,
		DatasetID: c.Dataset,
		FileName:  filepath.Base(c.File),
	})

	if err := printJSON(res, c.Compact); err != nil {
		return err
	}
	if res.ProcessingMethod == models.MethodNone {
		return fmt.Errorf("extraction failed: %s", res.ProviderNote)
	}
	return nil
}

type DatasetsCmd struct{}

func (c *DatasetsCmd) Run(cli *CLI) error {
	a, err := build(cli)
	if err != nil {
		return err
	}
	ds := a.Service.ListDatasets()
	return printJSON(models.DatasetListResponse{Success: true, Datasets: ds, Total: len(ds)}, false)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("argus %s\n", version)
	return nil
}

func build(cli *CLI) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// stdout carries the result; logs go to stderr
	logger := utils.NewLoggerTo(os.Stderr, cli.LogLevel)
	return app.New(cfg, logger)
}

func printJSON(v any, compact bool) error {
	enc := json.NewEncoder(os.Stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("argus"),
		kong.Description("Argus - document extraction with OCR, LLM and heuristic fallbacks"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
