package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"business-consultant/internal/config"
	"business-consultant/internal/helper"
	"business-consultant/internal/llmservice"
	"business-consultant/internal/models"
	"business-consultant/internal/router"
	"business-consultant/internal/server"
)

const configFilePath = "./configs/config.yaml"

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	modeName := flag.String("mode", "", "Run one action and exit: consult, swot or document. Empty serves the web UI")
	query := flag.String("query", "", "Question to be answered")
	company := flag.String("company", "", "Company for the SWOT analysis")
	debug := flag.Bool("debug", false, "Enable debug logging")
	var files fileList
	flag.Var(&files, "file", "Document or dataset to analyze (repeatable)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Str("addr", cfg.Server.Addr).Str("chat_model", cfg.ChatLLM.Model).Str("embed_model", cfg.EmbedLLM.Model).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := llmservice.NewProvider(cfg)
	rt := router.New(cfg, provider)

	if *modeName == "" {
		srv, err := server.New(cfg, rt)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating server")
		}
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
		return
	}

	mode, ok := router.ParseMode(*modeName)
	if !ok {
		log.Fatal().Str("mode", *modeName).Msg("Unknown mode, use consult, swot or document")
	}
	if code := runOnce(ctx, cfg, rt, mode, *query, *company, files); code != 0 {
		os.Exit(code)
	}
}

// runOnce performs a single action in a throwaway session and prints the result.
func runOnce(ctx context.Context, cfg *config.Config, rt *router.Router, mode router.Mode, query, company string, files []string) int {
	sess, err := router.NewSession(cfg.Server.ScratchDir)
	if err != nil {
		log.Error().Err(err).Msg("Error creating session")
		return 1
	}
	defer sess.Close()

	action := router.Action{Mode: mode, Question: query, Company: company}
	if mode == router.ModeDocument {
		if len(files) == 0 {
			log.Error().Msg("Please provide at least one document using the -file flag")
			return 2
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Error().Err(err).Str("file", path).Msg("Error reading file")
				return 1
			}
			name := filepath.Base(path)
			action.Uploads = append(action.Uploads, models.Upload{Name: name, Data: data})
			if models.Describe(name).Kind.Tabular() && query != "" {
				if action.DatasetQuestions == nil {
					action.DatasetQuestions = make(map[string]string)
				}
				action.DatasetQuestions[name] = query
			}
		}
		if !hasRetrievable(action.Uploads) {
			action.Question = ""
		}
	}

	out := rt.Dispatch(ctx, sess, action)
	printOutcome(out)
	if out.Failed() {
		return 1
	}
	return 0
}

func hasRetrievable(uploads []models.Upload) bool {
	for _, up := range uploads {
		if models.Describe(up.Name).Kind.Retrievable() {
			return true
		}
	}
	return false
}

func printOutcome(out *router.Outcome) {
	for _, msg := range out.Errors {
		log.Error().Msg(msg)
	}

	if out.Upload != nil {
		log.Info().Msg("Upload: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		helper.PrettyPrint(out.Upload)
	}

	if out.Response != nil {
		log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", out.Response.Query)

		if len(out.Response.Sources) > 0 {
			log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			for _, s := range out.Response.Sources {
				fmt.Printf("%s (page %d)\n", s.Filename, s.PageNumber)
			}
			fmt.Println()
		}

		log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", out.Response.Content)
	}

	for _, a := range out.Analyses {
		log.Info().Str("dataset", a.Dataset).Msg("Data Analysis: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		if a.Error != "" {
			log.Error().Msg(a.Error)
			continue
		}
		fmt.Printf("%s\n\n", a.Response.Content)
		if a.Response.ChartPath != "" {
			// the session dir is removed on exit, keep a copy of the chart
			if err := copyChart(a.Response.ChartPath, a.Dataset); err != nil {
				log.Warn().Err(err).Msg("Could not save chart")
			}
		}
	}
}

func copyChart(src, dataset string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	dst := strings.TrimSuffix(dataset, filepath.Ext(dataset)) + "-" + filepath.Base(src)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Chart saved to %s\n\n", dst)
	return nil
}
